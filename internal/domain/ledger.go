package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKind enumerates balance movements for auditing.
type LedgerKind string

const (
	LedgerStartingBalance LedgerKind = "starting_balance"
	LedgerBetStake        LedgerKind = "bet_stake"
	LedgerBetRefund       LedgerKind = "bet_refund"
	LedgerBetPayout       LedgerKind = "bet_payout"
	LedgerAdjustment      LedgerKind = "adjustment"
)

// LedgerEntry is an immutable audit record for every member balance change.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	LeagueID      uuid.UUID       `json:"league_id"      db:"league_id"`
	UserID        uuid.UUID       `json:"user_id"        db:"user_id"`
	Kind          LedgerKind      `json:"kind"           db:"kind"`
	Amount        decimal.Decimal `json:"amount"         db:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"  db:"balance_after"`
	RefID         *uuid.UUID      `json:"ref_id"         db:"ref_id"` // bet or ticket ID
	Description   string          `json:"description"    db:"description"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
}

// NewLedgerEntry builds an entry from a before/after pair of member states.
func NewLedgerEntry(before, after Member, kind LedgerKind, refID *uuid.UUID, desc string, at time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:            uuid.New(),
		LeagueID:      after.LeagueID,
		UserID:        after.UserID,
		Kind:          kind,
		Amount:        after.Balance.Sub(before.Balance).Abs(),
		BalanceBefore: before.Balance,
		BalanceAfter:  after.Balance,
		RefID:         refID,
		Description:   desc,
		CreatedAt:     at,
	}
}
