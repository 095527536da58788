// Package chart builds the ECharts charts shown on the player page.
package chart

import (
	"fmt"
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/ernie/stationstats/internal/stats"
)

const (
	Height = 400

	RoletimeID = "roletime"
	ActivityID = "activity"

	barColor       = "#dc2626"
	textColor      = "rgb(100 116 139)"
	activityMaxDay = 24
)

// tooltip values use a decimal comma
const (
	hoursFormatter = `function (params) {
		var p = Array.isArray(params) ? params[0] : params;
		return p.name + '<br/>' + String(p.value).replace('.', ',') + ' hours';
	}`
	roundsFormatter = `function (params) {
		var p = Array.isArray(params) ? params[0] : params;
		return p.name + '<br/>' + String(p.value).replace('.', ',') + ' rounds';
	}`
)

// Snippet is a chart ready to embed in a page. Option is the raw ECharts
// option JSON.
type Snippet struct {
	ID      string
	Element template.HTML
	Script  template.HTML
	Option  string
}

type snippetRenderer interface {
	RenderSnippet() render.ChartSnippet
}

func renderSnippet(id string, c snippetRenderer) Snippet {
	s := c.RenderSnippet()
	return Snippet{
		ID:      id,
		Element: template.HTML(s.Element),
		Script:  template.HTML(s.Script),
		Option:  s.Option,
	}
}

// widthCSS returns the chart width; unknown widths fill the container
func widthCSS(width int) string {
	if width <= 0 {
		return "100%"
	}
	return fmt.Sprintf("%dpx", width)
}

func initOpts(id string, width int, assetsHost string) opts.Initialization {
	init := opts.Initialization{
		ChartID: id,
		Width:   widthCSS(width),
		Height:  fmt.Sprintf("%dpx", Height),
	}
	if assetsHost != "" {
		init.AssetsHost = assetsHost
	}
	return init
}

// RoletimeBar builds the role-time bar chart, one bar per entry in hours
func RoletimeBar(bars []stats.Bar, width int, assetsHost string) *charts.Bar {
	jobs := make([]string, len(bars))
	data := make([]opts.BarData, len(bars))
	for i, b := range bars {
		jobs[i] = b.Job
		data[i] = opts.BarData{Name: b.Job, Value: b.Hours}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(RoletimeID, width, assetsHost)),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "axis",
			Formatter: opts.FuncOpts(hoursFormatter),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{
				Color: textColor,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{
				Color: textColor,
			},
		}),
		charts.WithGridOpts(opts.Grid{
			Left:         "20",
			Right:        "30",
			Top:          "5",
			Bottom:       "5",
			ContainLabel: opts.Bool(true),
		}),
	)

	bar.SetXAxis(jobs).AddSeries("hours", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: barColor}),
	)
	return bar
}

// ActivityLine builds the rounds-per-day line chart
func ActivityLine(days []stats.Day, width int, assetsHost string) *charts.Line {
	dates := make([]string, len(days))
	data := make([]opts.LineData, len(days))
	for i, d := range days {
		dates[i] = d.Date
		data[i] = opts.LineData{Name: d.Date, Value: d.Rounds}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(ActivityID, width, assetsHost)),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "axis",
			Formatter: opts.FuncOpts(roundsFormatter),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{
				Show: opts.Bool(false),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Min: 0,
			Max: activityMaxDay,
			AxisLabel: &opts.AxisLabel{
				Color: textColor,
			},
		}),
		charts.WithGridOpts(opts.Grid{
			Left:         "20",
			Right:        "30",
			Top:          "5",
			Bottom:       "5",
			ContainLabel: opts.Bool(true),
		}),
	)

	line.SetXAxis(dates).AddSeries("rounds", data,
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(true),
			ShowSymbol: opts.Bool(false),
		}),
	)
	return line
}

// RoletimeSnippet renders the bar chart for embedding
func RoletimeSnippet(bars []stats.Bar, width int, assetsHost string) Snippet {
	return renderSnippet(RoletimeID, RoletimeBar(bars, width, assetsHost))
}

// ActivitySnippet renders the line chart for embedding
func ActivitySnippet(days []stats.Day, width int, assetsHost string) Snippet {
	return renderSnippet(ActivityID, ActivityLine(days, width, assetsHost))
}
