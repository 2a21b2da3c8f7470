package session

import "github.com/examgate/examgate-backend/internal/model"

// EventType identifies a session event pushed to the consumer.
type EventType string

const (
	// EventTick carries the once-per-second remaining time.
	EventTick EventType = "tick"
	// EventExpired signals the deadline passed and auto-submit ran.
	EventExpired EventType = "expired"
	// EventSubmitted signals a manual submission completed.
	EventSubmitted EventType = "submitted"
	// EventSyncStatus reports the outcome of the best-effort remote
	// mirror. Never fatal; the local copy stays authoritative.
	EventSyncStatus EventType = "sync_status"
)

// Event is a single push-based notification from the engine.
type Event struct {
	Type             EventType         `json:"type"`
	SecondsRemaining int64             `json:"seconds_remaining,omitempty"`
	Result           *model.TestResult `json:"result,omitempty"`
	SyncOK           bool              `json:"sync_ok,omitempty"`
	Message          string            `json:"message,omitempty"`
}
