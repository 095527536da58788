package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ernie/stationstats/internal/domain"
	"github.com/ernie/stationstats/internal/stats"
)

var (
	errPlayerNotFound = errors.New("player not found")
	errInvalidToggle  = errors.New("invalid toggle")
	errInvalidWheel   = errors.New("invalid wheel delta")
)

// view-state query parameters
const (
	paramShow    = "show"
	paramMaxBars = "n"
	paramInput   = "max"
	paramWidth   = "w"

	actionToggle  = "toggle"
	actionChecked = "checked"
	actionInput   = "input"
	actionWheel   = "wheel"
)

var validCategories = map[string]bool{
	"jobs": true, "other": true, "trait": true,
	"spawner": true, "ghost": true, "antagonists": true,
}

// validateCategory checks if a toggle name is a known category
func validateCategory(name string) bool {
	return validCategories[name]
}

// parseWidth parses the observed chart width, 0 when absent or invalid
func parseWidth(req *http.Request) int {
	if w := req.URL.Query().Get(paramWidth); w != "" {
		if parsed, err := strconv.Atoi(w); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

// parseMaxBars parses the committed bar limit, 0 when absent or invalid
func parseMaxBars(req *http.Request) int {
	if n := req.URL.Query().Get(paramMaxBars); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

// parseOptions returns the enabled categories, the defaults when absent
func parseOptions(req *http.Request) stats.Options {
	q := req.URL.Query()
	if !q.Has(paramShow) {
		return stats.DefaultOptions
	}
	return stats.ParseOptions(q.Get(paramShow))
}

// roletimeChart restores the chart from the request's view state and
// applies at most one action: a toggle, typed input or a wheel tick.
// It reports whether the action was committed.
func (r *Router) roletimeChart(player *domain.Player, req *http.Request) (*stats.RoletimeChart, bool, error) {
	q := req.URL.Query()

	chart := stats.NewRoletimeChart(r.classifier, player.Roletime)
	chart.Restore(parseOptions(req), parseMaxBars(req), q.Get(paramInput))
	chart.Resize(parseWidth(req))

	switch {
	case q.Has(actionToggle):
		name := q.Get(actionToggle)
		if !validateCategory(name) {
			return nil, false, fmt.Errorf("%w: %q", errInvalidToggle, name)
		}
		cat, _ := stats.ParseCategory(name)
		checked, err := strconv.ParseBool(q.Get(actionChecked))
		if err != nil {
			return nil, false, fmt.Errorf("%w: checked must be true or false", errInvalidToggle)
		}
		return chart, chart.Toggle(cat, checked), nil

	case q.Has(actionInput):
		chart.SetInput(q.Get(actionInput))
		return chart, true, nil

	case q.Has(actionWheel):
		delta, err := strconv.ParseFloat(q.Get(actionWheel), 64)
		if err != nil || math.IsNaN(delta) {
			return nil, false, errInvalidWheel
		}
		chart.Wheel(delta)
		return chart, true, nil
	}
	return chart, true, nil
}

// viewQuery serializes a chart's state for the next navigation
func viewQuery(chart *stats.RoletimeChart) url.Values {
	q := url.Values{}
	q.Set(paramShow, chart.Options().String())
	q.Set(paramMaxBars, strconv.Itoa(chart.MaxBars()))
	q.Set(paramInput, chart.Input())
	q.Set(paramWidth, strconv.Itoa(chart.Width()))
	return q
}
