package stats

import (
	"math"
	"strconv"
	"strings"

	"github.com/ernie/stationstats/internal/domain"
)

const (
	// DefaultMaxBars is the initial bar limit of a role-time chart
	DefaultMaxBars = 20
	// DefaultWidth is the chart width before any container width is observed
	DefaultWidth = 800
)

// Bar is one role-time entry ready for charting
type Bar struct {
	Job     string  `json:"job"`
	Minutes int     `json:"minutes"`
	Hours   float64 `json:"hours"`
}

// HoursFromMinutes converts minutes to hours, truncated to one decimal
func HoursFromMinutes(minutes int) float64 {
	return math.Floor(float64(minutes)/6) / 10
}

// RoletimeChart is the filter state behind the role-time bar chart.
// The filtered projection is never empty after a committed toggle.
type RoletimeChart struct {
	classifier *Classifier
	roletime   []domain.Roletime

	options  Options
	filtered []Bar

	maxBars int
	input   string
	invalid bool
	width   int
}

// NewRoletimeChart creates a chart in its initial state
func NewRoletimeChart(classifier *Classifier, roletime []domain.Roletime) *RoletimeChart {
	c := &RoletimeChart{
		classifier: classifier,
		roletime:   roletime,
		options:    DefaultOptions,
		maxBars:    DefaultMaxBars,
		input:      strconv.Itoa(DefaultMaxBars),
		width:      DefaultWidth,
	}
	c.filtered = c.project(c.options)
	c.revalidate()
	return c
}

// Restore rebuilds a chart from serialized view state: the committed
// options and bar limit plus the displayed input text. Options that would
// show nothing fall back to the defaults. The input is shown as is and
// only re-validated, so an out-of-range text keeps the stored limit.
func (c *RoletimeChart) Restore(options Options, maxBars int, input string) {
	if len(c.project(options)) > 0 {
		c.options = options
		c.filtered = c.project(options)
	}
	if maxBars > 0 {
		c.maxBars = maxBars
	}
	if input != "" {
		c.input = input
	}
	c.revalidate()
}

// project returns the entries visible under o, in input order
func (c *RoletimeChart) project(o Options) []Bar {
	var bars []Bar
	for _, rt := range c.roletime {
		if c.classifier.Visible(rt.Job, o) {
			bars = append(bars, Bar{Job: rt.Job, Minutes: rt.Minutes, Hours: HoursFromMinutes(rt.Minutes)})
		}
	}
	return bars
}

// Toggle switches category cat on or off. The change is committed only if
// at least one entry stays visible; it reports whether it was committed.
func (c *RoletimeChart) Toggle(cat Category, on bool) bool {
	candidate := c.options.With(cat, on)
	projected := c.project(candidate)
	if len(projected) == 0 {
		return false
	}

	c.options = candidate
	c.filtered = projected
	c.revalidate()
	return true
}

// SetInput applies typed text to the max-bars input and returns the text
// as it should now be displayed
func (c *RoletimeChart) SetInput(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		raw = "1"
	case strings.HasPrefix(raw, "0"):
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v != 0 {
			raw = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	c.input = raw
	c.commitInput()
	return raw
}

// Wheel applies one wheel tick to the max-bars input: scrolling down
// decreases the value, scrolling up increases it, never below 1
func (c *RoletimeChart) Wheel(deltaY float64) {
	var step int
	switch {
	case deltaY > 0:
		step = -1
	case deltaY < 0:
		step = 1
	default:
		return
	}

	current, ok := parseCount(c.input)
	if !ok {
		current = c.maxBars
	}
	c.input = strconv.Itoa(max(current+step, 1))
	c.commitInput()
}

// commitInput stores the input as max-bars when it is in range,
// otherwise only flags it
func (c *RoletimeChart) commitInput() {
	if v, ok := c.inputInRange(); ok {
		c.maxBars = v
		c.invalid = false
		return
	}
	c.invalid = true
}

// revalidate refreshes the invalid flag without touching max-bars
func (c *RoletimeChart) revalidate() {
	_, ok := c.inputInRange()
	c.invalid = !ok
}

func (c *RoletimeChart) inputInRange() (int, bool) {
	v, ok := parseCount(c.input)
	if !ok || v < 1 || v > len(c.filtered) {
		return 0, false
	}
	return v, true
}

// parseCount parses an integral number, accepting forms like "7.0"
func parseCount(s string) (int, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// Resize records an observed container width
func (c *RoletimeChart) Resize(width int) {
	if width > 0 {
		c.width = width
	}
}

// Options returns the committed category options
func (c *RoletimeChart) Options() Options { return c.options }

// Filtered returns every entry visible under the committed options
func (c *RoletimeChart) Filtered() []Bar { return c.filtered }

// Visible returns the first MaxBars entries of Filtered
func (c *RoletimeChart) Visible() []Bar {
	if c.maxBars < len(c.filtered) {
		return c.filtered[:c.maxBars]
	}
	return c.filtered
}

// MaxBars returns the stored bar limit
func (c *RoletimeChart) MaxBars() int { return c.maxBars }

// Input returns the displayed max-bars text
func (c *RoletimeChart) Input() string { return c.input }

// InputInvalid reports whether the displayed text is out of range
func (c *RoletimeChart) InputInvalid() bool { return c.invalid }

// Width returns the chart width in pixels
func (c *RoletimeChart) Width() int { return c.width }
