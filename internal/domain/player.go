package domain

import (
	"encoding/json"
	"fmt"
)

// Player is the merged view of the four per-player API resources
type Player struct {
	ByondKey       string      `json:"byond_key"`
	FirstSeenRound int         `json:"first_seen_round"`
	LastSeenRound  int         `json:"last_seen_round"`
	FirstSeen      string      `json:"first_seen"`
	LastSeen       string      `json:"last_seen"`
	ByondAge       string      `json:"byond_age"`
	Characters     []Character `json:"characters"`
	Roletime       []Roletime  `json:"roletime"`
	Activity       []Activity  `json:"activity"`
}

// Roletime is the time a player spent in a single job
type Roletime struct {
	Job     string `json:"job"`
	Minutes int    `json:"minutes"`
}

// Activity is one day of the player's round history, encoded as [date, rounds]
type Activity struct {
	Date   string // YYYY-MM-DD
	Rounds int
}

// UnmarshalJSON decodes the [date, rounds] tuple
func (a *Activity) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("activity: want [date, rounds], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &a.Date); err != nil {
		return fmt.Errorf("activity date: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &a.Rounds); err != nil {
		return fmt.Errorf("activity rounds: %w", err)
	}
	return nil
}

// MarshalJSON encodes the activity back into its tuple form
func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{a.Date, a.Rounds})
}

// Character is a character tuple; the first element is the name and
// anything after it is carried along untouched.
type Character struct {
	Name  string
	Extra []json.RawMessage
}

// UnmarshalJSON decodes a [name, ...] tuple
func (c *Character) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("character: %w", err)
	}
	if len(tuple) == 0 {
		return fmt.Errorf("character: empty tuple")
	}
	if err := json.Unmarshal(tuple[0], &c.Name); err != nil {
		return fmt.Errorf("character name: %w", err)
	}
	c.Extra = tuple[1:]
	return nil
}

// MarshalJSON encodes the character back into its tuple form
func (c Character) MarshalJSON() ([]byte, error) {
	tuple := make([]any, 0, len(c.Extra)+1)
	tuple = append(tuple, c.Name)
	for _, raw := range c.Extra {
		tuple = append(tuple, raw)
	}
	return json.Marshal(tuple)
}
