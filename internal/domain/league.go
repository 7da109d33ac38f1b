// Package domain defines the core business entities and rules for the
// friend-league betting system: leagues and their member ledgers, tickets and
// their state machine, bets, and settlement arithmetic.
package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// LeagueStatus represents the lifecycle state of a league.
type LeagueStatus string

const (
	LeagueActive    LeagueStatus = "active"    // members may join and bet
	LeaguePaused    LeagueStatus = "paused"    // frozen by an admin
	LeagueCompleted LeagueStatus = "completed" // season over
)

// IsValid returns true if the status is a recognised league status.
func (s LeagueStatus) IsValid() bool {
	switch s {
	case LeagueActive, LeaguePaused, LeagueCompleted:
		return true
	}
	return false
}

// InviteCodeLength is the number of characters in a generated invite code.
const InviteCodeLength = 8

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInviteCode returns a random invite code drawn from A-Z0-9.
func NewInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	n := big.NewInt(int64(len(inviteAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("domain.NewInviteCode: %w", err)
		}
		buf[i] = inviteAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// NormalizeInviteCode trims and upper-cases a user-supplied invite code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ──────────────────────────────────────────────────────────────────────────────
// League
// ──────────────────────────────────────────────────────────────────────────────

// League is a private betting group with an isolated virtual-balance ledger.
// Balances live on the Member rows; there is no other balance store.
type League struct {
	ID              uuid.UUID       `json:"id"               db:"id"`
	Name            string          `json:"name"             db:"name"`
	Description     string          `json:"description"      db:"description"`
	CreatorID       uuid.UUID       `json:"creator_id"       db:"creator_id"`
	StartingBalance decimal.Decimal `json:"starting_balance" db:"starting_balance"`
	Status          LeagueStatus    `json:"status"           db:"status"`
	InviteCode      string          `json:"invite_code"      db:"invite_code"`
	EndDate         *time.Time      `json:"end_date"         db:"end_date"`
	CreatedAt       time.Time       `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"       db:"updated_at"`
}

// IsActive returns true while members may join and bet.
func (l *League) IsActive() bool {
	return l.Status == LeagueActive
}

// IsCreator reports whether userID created the league.
func (l *League) IsCreator(userID uuid.UUID) bool {
	return l.CreatorID == userID
}

// Expired reports whether the league has an end date that is not after now.
func (l *League) Expired(now time.Time) bool {
	return l.EndDate != nil && !now.Before(*l.EndDate)
}

// ──────────────────────────────────────────────────────────────────────────────
// Member: one ledger row
// ──────────────────────────────────────────────────────────────────────────────

// Member is a user's membership in a league together with their balance.
type Member struct {
	LeagueID uuid.UUID       `json:"league_id" db:"league_id"`
	UserID   uuid.UUID       `json:"user_id"   db:"user_id"`
	Username string          `json:"username"  db:"username"`
	Balance  decimal.Decimal `json:"balance"   db:"balance"`
	IsAdmin  bool            `json:"is_admin"  db:"is_admin"`
	JoinSeq  int64           `json:"-"         db:"join_seq"`
	JoinedAt time.Time       `json:"joined_at" db:"joined_at"`
}

// Debit returns a copy of the member with amount subtracted.
// amount must be positive and must not exceed the current balance.
func (m Member) Debit(amount decimal.Decimal) (Member, error) {
	if !amount.IsPositive() {
		return m, ErrInvalidStake
	}
	if amount.GreaterThan(m.Balance) {
		return m, ErrInsufficientFunds
	}
	m.Balance = m.Balance.Sub(amount)
	return m, nil
}

// Credit returns a copy of the member with amount added. amount may be zero.
func (m Member) Credit(amount decimal.Decimal) (Member, error) {
	if amount.IsNegative() {
		return m, ErrInvalidStake
	}
	m.Balance = m.Balance.Add(amount)
	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Leaderboard
// ──────────────────────────────────────────────────────────────────────────────

// LeaderboardEntry is one ranked row of a league leaderboard.
type LeaderboardEntry struct {
	Rank     int             `json:"rank"`
	UserID   uuid.UUID       `json:"user_id"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
	JoinedAt time.Time       `json:"joined_at"`
}

// SortLeaderboard ranks members by balance descending. Equal balances keep
// join order (earliest first).
func SortLeaderboard(members []Member) []LeaderboardEntry {
	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Balance.Cmp(sorted[j].Balance); c != 0 {
			return c > 0
		}
		return sorted[i].JoinSeq < sorted[j].JoinSeq
	})

	out := make([]LeaderboardEntry, len(sorted))
	for i, m := range sorted {
		out[i] = LeaderboardEntry{
			Rank:     i + 1,
			UserID:   m.UserID,
			Username: m.Username,
			Balance:  m.Balance,
			JoinedAt: m.JoinedAt,
		}
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// LeagueSummary: read model for "my leagues"
// ──────────────────────────────────────────────────────────────────────────────

// LeagueSummary is a league as seen by one of its members.
type LeagueSummary struct {
	League
	MemberCount int             `json:"member_count" db:"member_count"`
	MyBalance   decimal.Decimal `json:"my_balance"   db:"my_balance"`
	IsAdmin     bool            `json:"is_admin"     db:"is_admin"`
}
