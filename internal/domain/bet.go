package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// BetStatus represents the current state of a member's bet. Moves only from
// pending to won or lost.
type BetStatus string

const (
	BetPending BetStatus = "pending" // ticket not yet resolved
	BetWon     BetStatus = "won"     // selected option won; payout credited
	BetLost    BetStatus = "lost"    // selected option lost; stake already debited
)

// IsValid returns true if the status is a recognised bet status.
func (s BetStatus) IsValid() bool {
	return s == BetPending || s == BetWon || s == BetLost
}

// ──────────────────────────────────────────────────────────────────────────────
// Bet
// ──────────────────────────────────────────────────────────────────────────────

// Bet represents a single member wager on one option of one ticket.
// At most one bet exists per (user, ticket).
type Bet struct {
	ID              uuid.UUID       `json:"id"               db:"id"`
	UserID          uuid.UUID       `json:"user_id"          db:"user_id"`
	LeagueID        uuid.UUID       `json:"league_id"        db:"league_id"`
	TicketID        uuid.UUID       `json:"ticket_id"        db:"ticket_id"`
	Amount          decimal.Decimal `json:"amount"           db:"amount"`
	SelectedOption  string          `json:"selected_option"  db:"selected_option"`
	Odds            decimal.Decimal `json:"odds"             db:"odds"`
	PotentialPayout decimal.Decimal `json:"potential_payout" db:"potential_payout"`
	Status          BetStatus       `json:"status"           db:"status"`
	PlacedAt        time.Time       `json:"placed_at"        db:"placed_at"`
	SettledAt       *time.Time      `json:"settled_at"       db:"settled_at"`
}

// IsPending returns true while the bet awaits settlement.
func (b *Bet) IsPending() bool {
	return b.Status == BetPending
}

// NewBet validates the stake against the selected option and returns a
// pending bet whose potential payout is stake × odds.
func NewBet(userID uuid.UUID, ticket *Ticket, selected string, stake decimal.Decimal, now time.Time) (*Bet, error) {
	opt, ok := ticket.Option(selected)
	if !ok {
		return nil, ErrUnknownOption
	}
	payout, err := Payout(stake, opt.Odds)
	if err != nil {
		return nil, err
	}
	return &Bet{
		ID:              uuid.New(),
		UserID:          userID,
		LeagueID:        ticket.LeagueID,
		TicketID:        ticket.ID,
		Amount:          stake,
		SelectedOption:  opt.Text,
		Odds:            opt.Odds,
		PotentialPayout: payout,
		Status:          BetPending,
		PlacedAt:        now,
	}, nil
}

// PlaceBetRequest carries the validated inputs for placing a bet.
type PlaceBetRequest struct {
	UserID         uuid.UUID
	TicketID       uuid.UUID
	SelectedOption string
	Amount         decimal.Decimal
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// SettlementResult summarises a ticket resolution.
type SettlementResult struct {
	TicketID      uuid.UUID       `json:"ticket_id"`
	WinningOption string          `json:"winning_option"`
	WonCount      int             `json:"won_count"`
	LostCount     int             `json:"lost_count"`
	Total         int             `json:"total"`
	TotalPaidOut  decimal.Decimal `json:"total_paid_out"`
}

// Settlement is the outcome of SettleBets: the bets with their final status,
// and the amount to credit to each winning user.
type Settlement struct {
	Bets    []Bet
	Credits map[uuid.UUID]decimal.Decimal
	Result  SettlementResult
}

// SettleBets marks every pending bet won or lost against the winning option
// (exact string match) and accumulates the payouts owed to winners. Bets that
// are no longer pending are passed through untouched. The caller guarantees a
// ticket is settled only once.
func SettleBets(ticketID uuid.UUID, bets []Bet, winningOption string, now time.Time) Settlement {
	s := Settlement{
		Bets:    make([]Bet, 0, len(bets)),
		Credits: make(map[uuid.UUID]decimal.Decimal),
		Result: SettlementResult{
			TicketID:      ticketID,
			WinningOption: winningOption,
			TotalPaidOut:  decimal.Zero,
		},
	}
	for _, b := range bets {
		if !b.IsPending() {
			s.Bets = append(s.Bets, b)
			continue
		}
		settledAt := now
		b.SettledAt = &settledAt
		if b.SelectedOption == winningOption {
			b.Status = BetWon
			s.Credits[b.UserID] = s.Credits[b.UserID].Add(b.PotentialPayout)
			s.Result.TotalPaidOut = s.Result.TotalPaidOut.Add(b.PotentialPayout)
			s.Result.WonCount++
		} else {
			b.Status = BetLost
			s.Result.LostCount++
		}
		s.Result.Total++
		s.Bets = append(s.Bets, b)
	}
	return s
}

// ──────────────────────────────────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────────────────────────────────

// BetStats aggregates a user's betting record.
type BetStats struct {
	TotalBets    int             `json:"total_bets"`
	WonBets      int             `json:"won_bets"`
	LostBets     int             `json:"lost_bets"`
	PendingBets  int             `json:"pending_bets"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	WinRate      decimal.Decimal `json:"win_rate"` // percent, 0 when there are no bets
}

// ComputeStats derives BetStats from a set of bets.
//
//	total_wagered = Σ amount (all bets)
//	total_won     = Σ potential_payout (won bets)
//	net_profit    = total_won − total_wagered
//	win_rate      = won / total × 100
func ComputeStats(bets []Bet) BetStats {
	st := BetStats{
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
		NetProfit:    decimal.Zero,
		WinRate:      decimal.Zero,
	}
	for _, b := range bets {
		st.TotalBets++
		st.TotalWagered = st.TotalWagered.Add(b.Amount)
		switch b.Status {
		case BetWon:
			st.WonBets++
			st.TotalWon = st.TotalWon.Add(b.PotentialPayout)
		case BetLost:
			st.LostBets++
		case BetPending:
			st.PendingBets++
		}
	}
	st.NetProfit = st.TotalWon.Sub(st.TotalWagered)
	if st.TotalBets > 0 {
		st.WinRate = decimal.NewFromInt(int64(st.WonBets)).
			Div(decimal.NewFromInt(int64(st.TotalBets))).
			Mul(hundred)
	}
	return st
}
