package domain

import "time"

// Event types for WebSocket and NATS notifications
const (
	EventServerUpdate = "server_update"
	EventServerError  = "server_error"
)

// Event represents a real-time event for broadcast
type Event struct {
	Type      string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ServerUpdateEvent carries a full status snapshot; it replaces whatever
// the receiver had before
type ServerUpdateEvent struct {
	Servers []ServerStatus `json:"servers"`
}

// ServerErrorEvent is sent when a poll fails; receivers keep their last snapshot
type ServerErrorEvent struct {
	Message string `json:"message"`
}
