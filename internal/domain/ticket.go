package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// TicketStatus represents the lifecycle state of a ticket.
// Transitions: open → closed → resolved, or open → resolved. Never reverts.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"     // accepting bets
	TicketClosed   TicketStatus = "closed"   // betting window over, awaiting resolution
	TicketResolved TicketStatus = "resolved" // winner determined, bets settled
)

// IsValid returns true if the status is a recognised ticket status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketOpen, TicketClosed, TicketResolved:
		return true
	}
	return false
}

// TicketType distinguishes the supported wager propositions.
type TicketType string

const (
	TicketMoneyline TicketType = "moneyline"  // pick a side
	TicketOverUnder TicketType = "over_under" // pick above/below a target
)

// IsValid returns true if the type is a recognised ticket type.
func (t TicketType) IsValid() bool {
	return t == TicketMoneyline || t == TicketOverUnder
}

// Option-count and over/under target bounds.
const (
	MinTicketOptions = 2
	MaxTicketOptions = 10
)

var (
	MinOverUnderTarget = decimal.RequireFromString("0.5")
	MaxOverUnderTarget = decimal.NewFromInt(1000)
)

// ──────────────────────────────────────────────────────────────────────────────
// Option
// ──────────────────────────────────────────────────────────────────────────────

// Option is one selectable outcome on a ticket. Odds are a decimal payout
// multiplier.
type Option struct {
	Text string          `json:"text" db:"option_text"`
	Odds decimal.Decimal `json:"odds" db:"odds"`
}

// OptionInput is the unvalidated form of an option supplied by an admin.
type OptionInput struct {
	Text string          `json:"text" binding:"required,max=200"`
	Odds decimal.Decimal `json:"odds"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Ticket
// ──────────────────────────────────────────────────────────────────────────────

// Ticket is a wager proposition owned by a league. Options are ordered and
// their texts are unique within the ticket.
type Ticket struct {
	ID            uuid.UUID        `json:"id"`
	LeagueID      uuid.UUID        `json:"league_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Type          TicketType       `json:"ticket_type"`
	Options       []Option         `json:"options"`
	TargetValue   *decimal.Decimal `json:"target_value,omitempty"`
	Status        TicketStatus     `json:"status"`
	WinningOption *string          `json:"winning_option,omitempty"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	ClosesAt      *time.Time       `json:"closes_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
}

// NewMoneylineTicket builds an open moneyline ticket from admin input.
func NewMoneylineTicket(leagueID, createdBy uuid.UUID, title, description string,
	options []OptionInput, closesAt *time.Time, now time.Time,
) (*Ticket, error) {
	t := newTicket(leagueID, createdBy, title, description, TicketMoneyline, closesAt, now)
	if len(options) < MinTicketOptions {
		return nil, ErrTooFewOptions
	}
	for _, in := range options {
		if err := t.AddOption(in.Text, in.Odds); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewOverUnderTicket builds an open over/under ticket with the two options
// "Over {target}" and "Under {target}".
func NewOverUnderTicket(leagueID, createdBy uuid.UUID, title, description string,
	target, overOdds, underOdds decimal.Decimal, closesAt *time.Time, now time.Time,
) (*Ticket, error) {
	if target.LessThan(MinOverUnderTarget) || target.GreaterThan(MaxOverUnderTarget) ||
		!WithinPlaces(target, 2) {
		return nil, ErrInvalidTarget
	}
	t := newTicket(leagueID, createdBy, title, description, TicketOverUnder, closesAt, now)
	t.TargetValue = &target
	if err := t.AddOption(OverOptionText(target), overOdds); err != nil {
		return nil, err
	}
	if err := t.AddOption(UnderOptionText(target), underOdds); err != nil {
		return nil, err
	}
	return t, nil
}

func newTicket(leagueID, createdBy uuid.UUID, title, description string,
	typ TicketType, closesAt *time.Time, now time.Time,
) *Ticket {
	return &Ticket{
		ID:          uuid.New(),
		LeagueID:    leagueID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Type:        typ,
		Status:      TicketOpen,
		CreatedBy:   createdBy,
		ClosesAt:    closesAt,
		CreatedAt:   now,
	}
}

// OverOptionText returns the option text used for the "over" side.
func OverOptionText(target decimal.Decimal) string {
	return fmt.Sprintf("Over %s", target.String())
}

// UnderOptionText returns the option text used for the "under" side.
func UnderOptionText(target decimal.Decimal) string {
	return fmt.Sprintf("Under %s", target.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// State machine
// ──────────────────────────────────────────────────────────────────────────────

// IsOpen returns true while the stored status is open. Use CanPlaceBets to
// also take the deadline into account.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketOpen
}

// IsResolved returns true after the ticket has been settled.
func (t *Ticket) IsResolved() bool {
	return t.Status == TicketResolved
}

// Expired reports whether the ticket has a deadline that is not after now.
func (t *Ticket) Expired(now time.Time) bool {
	return t.ClosesAt != nil && !now.Before(*t.ClosesAt)
}

// CanPlaceBets is the derived betting condition: the stored status is open
// and the deadline, if any, has not passed.
func (t *Ticket) CanPlaceBets(now time.Time) bool {
	return t.IsOpen() && !t.Expired(now)
}

// Close moves an open ticket to closed.
func (t *Ticket) Close(now time.Time) error {
	if t.Status != TicketOpen {
		return ErrInvalidTransition
	}
	t.Status = TicketClosed
	t.ClosedAt = &now
	return nil
}

// Resolve records the winning option and moves the ticket to resolved.
// Legal from open or closed; winningOption must exactly match an option text.
func (t *Ticket) Resolve(winningOption string, now time.Time) error {
	if t.Status != TicketOpen && t.Status != TicketClosed {
		return ErrInvalidTransition
	}
	if _, ok := t.Option(winningOption); !ok {
		return ErrUnknownOption
	}
	t.Status = TicketResolved
	t.WinningOption = &winningOption
	t.ResolvedAt = &now
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

// Option returns the option with exactly the given text (case-sensitive).
func (t *Ticket) Option(text string) (Option, bool) {
	for _, o := range t.Options {
		if o.Text == text {
			return o, true
		}
	}
	return Option{}, false
}

// AddOption appends an option. Only legal while the ticket is open.
func (t *Ticket) AddOption(text string, odds decimal.Decimal) error {
	if t.Status != TicketOpen {
		return ErrInvalidTransition
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrUnknownOption
	}
	if err := ValidateOdds(odds); err != nil {
		return err
	}
	if _, exists := t.Option(text); exists {
		return ErrDuplicateOption
	}
	if len(t.Options) >= MaxTicketOptions {
		return ErrTooManyOptions
	}
	t.Options = append(t.Options, Option{Text: text, Odds: odds})
	return nil
}

// RemoveOption deletes an option. The ticket must stay open and keep at least
// MinTicketOptions options.
func (t *Ticket) RemoveOption(text string) error {
	if t.Status != TicketOpen {
		return ErrInvalidTransition
	}
	for i, o := range t.Options {
		if o.Text != text {
			continue
		}
		if len(t.Options) <= MinTicketOptions {
			return ErrTooFewOptions
		}
		t.Options = append(t.Options[:i:i], t.Options[i+1:]...)
		return nil
	}
	return ErrUnknownOption
}

// UpdateOptionOdds changes the odds on an existing option. Bets already placed
// keep the odds they were placed at.
func (t *Ticket) UpdateOptionOdds(text string, odds decimal.Decimal) error {
	if t.Status != TicketOpen {
		return ErrInvalidTransition
	}
	if err := ValidateOdds(odds); err != nil {
		return err
	}
	for i := range t.Options {
		if t.Options[i].Text == text {
			t.Options[i].Odds = odds
			return nil
		}
	}
	return ErrUnknownOption
}

// ──────────────────────────────────────────────────────────────────────────────
// TicketView: API read model
// ──────────────────────────────────────────────────────────────────────────────

// OptionView is an option enriched with display-only American odds.
type OptionView struct {
	Text         string          `json:"text"`
	Odds         decimal.Decimal `json:"odds"`
	AmericanOdds *int64          `json:"american_odds,omitempty"`
}

// TicketView is the API-facing representation of a ticket.
type TicketView struct {
	*Ticket
	Options      []OptionView `json:"options"`
	CanPlaceBets bool         `json:"can_place_bets"`
}

// ToView builds the API view of the ticket at the given instant.
func (t *Ticket) ToView(now time.Time) TicketView {
	opts := make([]OptionView, len(t.Options))
	for i, o := range t.Options {
		opts[i] = OptionView{Text: o.Text, Odds: o.Odds}
		if am, ok := DecimalToAmerican(o.Odds); ok {
			opts[i].AmericanOdds = &am
		}
	}
	return TicketView{Ticket: t, Options: opts, CanPlaceBets: t.CanPlaceBets(now)}
}
