package types

import (
	"github.com/dartopia/darts-server/internal/session"
)

// ClientMessage is the inbound socket envelope.
//
//	throw: {"type":"throw","section":20,"multiplier":3}
//	start: {"type":"start"}
type ClientMessage struct {
	Type       string `json:"type"`
	Section    int    `json:"section,omitempty"`
	Multiplier int    `json:"multiplier,omitempty"`
}

// ServerMessage is the outbound envelope: a push kind plus the full session
// snapshot, or an error for this client only.
type ServerMessage struct {
	Type  string            `json:"type"` // "state" | "score" | "turn" | "game_over" | "error"
	State *session.Snapshot `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}
