package stats

import (
	"testing"
	"time"

	"github.com/ernie/stationstats/internal/domain"
)

func TestActivitySeriesLength(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

	for _, activity := range [][]domain.Activity{
		nil,
		{{Date: "2026-10-18", Rounds: 2}},
		{{Date: "1999-01-01", Rounds: 9}, {Date: "not a date", Rounds: 1}},
	} {
		days := ActivitySeries(activity, now)
		if len(days) != ActivityDays {
			t.Errorf("len = %d, want %d", len(days), ActivityDays)
		}
	}
}

func TestActivitySeriesWindow(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	days := ActivitySeries(nil, now)

	if days[0].Date != "2026-04-22" {
		t.Errorf("first day = %s, want 2026-04-22", days[0].Date)
	}
	if days[len(days)-1].Date != "2026-10-18" {
		t.Errorf("last day = %s, want 2026-10-18", days[len(days)-1].Date)
	}
	for i := 1; i < len(days); i++ {
		prev, _ := time.Parse(DateLayout, days[i-1].Date)
		cur, _ := time.Parse(DateLayout, days[i].Date)
		if cur.Sub(prev) != 24*time.Hour {
			t.Fatalf("days %d and %d are not consecutive: %s %s", i-1, i, days[i-1].Date, days[i].Date)
		}
	}
}

func TestActivitySeriesZeroFill(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	activity := []domain.Activity{
		{Date: "2026-10-18", Rounds: 4},
		{Date: "2026-05-01", Rounds: 2},
		{Date: "2026-05-01", Rounds: 7}, // first match wins
		{Date: "2026-10-19", Rounds: 5}, // today is outside the window
	}

	days := ActivitySeries(activity, now)

	byDate := make(map[string]int)
	nonZero := 0
	for _, d := range days {
		byDate[d.Date] = d.Rounds
		if d.Rounds != 0 {
			nonZero++
		}
	}
	if byDate["2026-10-18"] != 4 || byDate["2026-05-01"] != 2 {
		t.Errorf("rounds = %d, %d", byDate["2026-10-18"], byDate["2026-05-01"])
	}
	if nonZero != 2 {
		t.Errorf("non-zero days = %d, want 2", nonZero)
	}
	if TotalRounds(days) != 6 {
		t.Errorf("TotalRounds = %d, want 6", TotalRounds(days))
	}
}

func TestActivitySeriesUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 01:00 local is still the previous day in UTC
	now := time.Date(2026, 10, 19, 1, 0, 0, 0, loc)

	days := ActivitySeries(nil, now)
	if days[len(days)-1].Date != "2026-10-18" {
		t.Errorf("last day = %s, want 2026-10-18", days[len(days)-1].Date)
	}
}
