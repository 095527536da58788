package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPlayerDecodesTuples(t *testing.T) {
	raw := `{
		"byond_key": "Urist",
		"first_seen_round": 100,
		"last_seen_round": 2500,
		"characters": [["Urist McUrist", 12], ["Bob"]],
		"roletime": [{"job": "Captain", "minutes": 125}],
		"activity": [["2026-10-01", 3], ["2026-10-02", 1]]
	}`

	var p Player
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if p.ByondKey != "Urist" || p.LastSeenRound != 2500 {
		t.Errorf("player = %+v", p)
	}
	if len(p.Characters) != 2 || p.Characters[0].Name != "Urist McUrist" || len(p.Characters[0].Extra) != 1 {
		t.Errorf("characters = %+v", p.Characters)
	}
	if p.Characters[1].Name != "Bob" || len(p.Characters[1].Extra) != 0 {
		t.Errorf("second character = %+v", p.Characters[1])
	}
	if len(p.Activity) != 2 || p.Activity[0] != (Activity{Date: "2026-10-01", Rounds: 3}) {
		t.Errorf("activity = %+v", p.Activity)
	}
}

func TestPlayerReencodesTuples(t *testing.T) {
	p := Player{
		ByondKey:   "Urist",
		Characters: []Character{{Name: "Urist McUrist", Extra: []json.RawMessage{json.RawMessage(`12`)}}},
		Activity:   []Activity{{Date: "2026-10-01", Rounds: 3}},
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"characters":[["Urist McUrist",12]]`) {
		t.Errorf("characters not encoded as tuples: %s", out)
	}
	if !strings.Contains(out, `"activity":[["2026-10-01",3]]`) {
		t.Errorf("activity not encoded as tuples: %s", out)
	}
}

func TestActivityRejectsMalformedTuple(t *testing.T) {
	for _, raw := range []string{`["2026-10-01"]`, `{"date":"x"}`, `[1, 2]`, `["2026-10-01", "x"]`} {
		var a Activity
		if err := json.Unmarshal([]byte(raw), &a); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestServerStatusAccessors(t *testing.T) {
	var s ServerStatus
	if err := json.Unmarshal([]byte(`{"server_name":"Main","round_id":4521,"players":"37","map":"MetaStation"}`), &s); err != nil {
		t.Fatal(err)
	}

	if s.Name() != "Main" {
		t.Errorf("Name = %q", s.Name())
	}
	if s.Int("round_id") != 4521 || s.Int("players") != 37 {
		t.Errorf("Int: round=%d players=%d", s.Int("round_id"), s.Int("players"))
	}
	if s.String("round_id") != "4521" || s.String("map") != "MetaStation" {
		t.Errorf("String: %q %q", s.String("round_id"), s.String("map"))
	}
	if !s.Online() {
		t.Error("expected online without error key")
	}

	s["error"] = "timeout"
	if s.Online() {
		t.Error("expected offline when error is set")
	}
}
