// Package events defines the league-scoped domain events emitted after a
// state change commits, and the publishers that deliver them.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	TicketCreated      Type = "ticket_created"
	TicketUpdated      Type = "ticket_updated"
	TicketClosed       Type = "ticket_closed"
	TicketResolved     Type = "ticket_resolved"
	BetPlaced          Type = "bet_placed"
	BetCancelled       Type = "bet_cancelled"
	MemberJoined       Type = "member_joined"
	MemberLeft         Type = "member_left"
	LeagueStatusChange Type = "league_status_changed"
	LeaderboardUpdated Type = "leaderboard_updated"
)

// Event is the envelope written to every sink. Payload is JSON-encoded as is.
type Event struct {
	Type       Type      `json:"type"`
	LeagueID   uuid.UUID `json:"league_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// New stamps an event with the current UTC time.
func New(t Type, leagueID uuid.UUID, payload any) Event {
	return Event{Type: t, LeagueID: leagueID, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every sink in order and joins their errors. A failing
// sink does not stop delivery to the rest.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
