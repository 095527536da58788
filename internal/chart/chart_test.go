package chart

import (
	"strings"
	"testing"

	"github.com/ernie/stationstats/internal/stats"
)

func TestWidthCSS(t *testing.T) {
	tests := []struct {
		width int
		want  string
	}{
		{0, "100%"},
		{-5, "100%"},
		{640, "640px"},
	}
	for _, tt := range tests {
		if got := widthCSS(tt.width); got != tt.want {
			t.Errorf("widthCSS(%d) = %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestRoletimeSnippet(t *testing.T) {
	bars := []stats.Bar{
		{Job: "Captain", Minutes: 750, Hours: 12.5},
		{Job: "Chemist", Minutes: 60, Hours: 1},
	}
	s := RoletimeSnippet(bars, 640, "")

	if s.ID != RoletimeID {
		t.Errorf("ID = %q", s.ID)
	}
	if !strings.Contains(string(s.Element), RoletimeID) {
		t.Errorf("element does not reference the chart id: %s", s.Element)
	}
	if !strings.Contains(string(s.Element), "640px") {
		t.Errorf("element has no width: %s", s.Element)
	}
	rendered := string(s.Script) + s.Option
	for _, want := range []string{"Captain", "Chemist", "12.5", barColor} {
		if !strings.Contains(rendered, want) {
			t.Errorf("script is missing %q", want)
		}
	}
}

func TestActivitySnippet(t *testing.T) {
	days := []stats.Day{
		{Date: "2026-10-17", Rounds: 0},
		{Date: "2026-10-18", Rounds: 4},
	}
	s := ActivitySnippet(days, 0, "")

	if !strings.Contains(string(s.Element), "100%") {
		t.Errorf("element should fill its container: %s", s.Element)
	}
	rendered := string(s.Script) + s.Option
	for _, want := range []string{"2026-10-17", "2026-10-18", "rounds"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("script is missing %q", want)
		}
	}
}
