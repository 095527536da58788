package stats

import (
	"time"

	"github.com/ernie/stationstats/internal/domain"
)

// ActivityDays is the length of the activity window
const ActivityDays = 180

// DateLayout is the date format used by the activity API
const DateLayout = "2006-01-02"

// Day is one point of the activity line chart
type Day struct {
	Date   string `json:"date"`
	Rounds int    `json:"rounds"`
}

// ActivitySeries expands sparse activity into one entry per day, starting at
// the beginning of the day ActivityDays before now. Days without activity
// get zero rounds.
func ActivitySeries(activity []domain.Activity, now time.Time) []Day {
	rounds := make(map[string]int, len(activity))
	for _, a := range activity {
		if _, seen := rounds[a.Date]; !seen {
			rounds[a.Date] = a.Rounds
		}
	}

	y, m, d := now.AddDate(0, 0, -ActivityDays).Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	days := make([]Day, ActivityDays)
	for i := range days {
		date := first.AddDate(0, 0, i).Format(DateLayout)
		days[i] = Day{Date: date, Rounds: rounds[date]}
	}
	return days
}

// TotalRounds sums the rounds of a series
func TotalRounds(days []Day) int {
	total := 0
	for _, d := range days {
		total += d.Rounds
	}
	return total
}
