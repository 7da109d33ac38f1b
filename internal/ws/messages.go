// Package ws holds the league-scoped WebSocket feed.
// messages.go defines the control messages sent to a single client; domain
// events are forwarded as their events.Event envelope.
package ws

import (
	"time"

	"github.com/google/uuid"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeConnected MsgType = "connected"
	MsgTypeError     MsgType = "error"
)

// ConnectedMessage is sent once after a client joins a league room.
type ConnectedMessage struct {
	Type      MsgType   `json:"type"`
	LeagueID  uuid.UUID `json:"league_id"`
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
