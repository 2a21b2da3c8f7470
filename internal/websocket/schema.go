package websocket

import "github.com/examgate/examgate-backend/internal/session"

// The stream is one-directional: the server pushes session events
// (ticks, expiry, sync status) and only expects pings back.

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only client payload: a keepalive ping.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSession Event = "session"
	EventPong    Event = "pong"
)

// SessionEventResponse wraps an engine event for the wire.
type SessionEventResponse struct {
	Event   Event         `json:"event"`
	Payload session.Event `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
