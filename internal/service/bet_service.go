package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/metrics"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ──────────────────────────────────────────────────────────────────────────────
// BetService
// ──────────────────────────────────────────────────────────────────────────────

// BetService orchestrates bet placement and cancellation. All money movement
// happens inside a single PostgreSQL transaction. Locks are always taken in
// the order ticket → bet → member.
type BetService struct {
	postCommit
	db      *sqlx.DB
	bets    *repository.BetRepository
	tickets *repository.TicketRepository
	leagues *repository.LeagueRepository
	minBet  decimal.Decimal
	maxBet  decimal.Decimal
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewBetService creates a BetService.
func NewBetService(
	db *sqlx.DB,
	bets *repository.BetRepository,
	tickets *repository.TicketRepository,
	leagues *repository.LeagueRepository,
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
) *BetService {
	return &BetService{
		postCommit: newPostCommit(log, leagues),
		db:         db,
		bets:       bets,
		tickets:    tickets,
		leagues:    leagues,
		minBet:     decimal.NewFromFloat(cfg.League.MinBet),
		maxBet:     decimal.NewFromFloat(cfg.League.MaxBet),
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBet
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBet validates the stake, locks the ticket FOR SHARE so it cannot be
// resolved mid-flight, debits the member's league balance and records the
// bet with its ledger entry, all in one transaction.
func (s *BetService) PlaceBet(ctx context.Context, req domain.PlaceBetRequest) (*domain.Bet, error) {
	bet, err := s.placeBet(ctx, req)
	if err != nil {
		s.metrics.BetRejections.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	s.metrics.BetsPlaced.Inc()
	s.metrics.StakeTotal.Add(bet.Amount.InexactFloat64())
	s.log.Info("bet placed",
		zap.String("bet_id", bet.ID.String()),
		zap.String("ticket_id", bet.TicketID.String()),
		zap.String("user_id", bet.UserID.String()),
		zap.String("amount", bet.Amount.String()))
	s.afterCommit(bet.LeagueID, true, events.New(events.BetPlaced, bet.LeagueID, bet))
	return bet, nil
}

func (s *BetService) placeBet(ctx context.Context, req domain.PlaceBetRequest) (*domain.Bet, error) {
	// ── 1. Stake bounds ──────────────────────────────────────────────────────
	if !req.Amount.IsPositive() || !domain.WithinPlaces(req.Amount, domain.MoneyPlaces) {
		return nil, domain.ErrInvalidStake
	}
	if req.Amount.LessThan(s.minBet) || req.Amount.GreaterThan(s.maxBet) {
		return nil, domain.ErrStakeOutOfRange
	}

	var bet *domain.Bet
	err := inTx(ctx, s.db, "bet_service.PlaceBet", func(tx *sqlx.Tx) error {
		// ── 2. Ticket must accept bets ───────────────────────────────────────
		ticket, err := s.tickets.GetForShare(ctx, tx, req.TicketID)
		if err != nil {
			return err
		}
		league, err := s.leagues.GetByID(ctx, ticket.LeagueID)
		if err != nil {
			return err
		}
		if !league.IsActive() {
			return domain.ErrLeagueNotActive
		}
		now := s.now()
		if !ticket.CanPlaceBets(now) {
			return domain.ErrBettingClosed
		}

		// ── 3. Option lookup + payout ────────────────────────────────────────
		bet, err = domain.NewBet(req.UserID, ticket, req.SelectedOption, req.Amount, now)
		if err != nil {
			return err
		}

		// ── 4. One bet per member per ticket ─────────────────────────────────
		exists, err := s.bets.ExistsForUserTicket(ctx, tx, req.UserID, req.TicketID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateBet
		}

		// ── 5. Debit under the member row lock ───────────────────────────────
		before, after, err := s.leagues.Debit(ctx, tx, ticket.LeagueID, req.UserID, req.Amount)
		if err != nil {
			return err
		}

		// ── 6. Persist bet + ledger entry ────────────────────────────────────
		if err := s.bets.Create(ctx, tx, bet); err != nil {
			return err
		}
		ref := bet.ID
		entry := domain.NewLedgerEntry(before, after, domain.LedgerBetStake, &ref,
			fmt.Sprintf("Bet on %q: %s", ticket.Title, bet.SelectedOption), now)
		return s.leagues.LogEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// rejectionReason maps a placement error to a low-cardinality metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrDuplicateBet):
		return "duplicate"
	case errors.Is(err, domain.ErrBettingClosed), errors.Is(err, domain.ErrLeagueNotActive):
		return "closed"
	case errors.Is(err, domain.ErrNotAMember):
		return "not_member"
	case domain.IsValidation(err):
		return "invalid"
	case domain.IsNotFound(err):
		return "not_found"
	}
	return "error"
}

// ──────────────────────────────────────────────────────────────────────────────
// CancelBet
// ──────────────────────────────────────────────────────────────────────────────

// CancelBet deletes a pending bet while its ticket still accepts bets and
// refunds the stake. Bets owned by someone else are reported as not found.
func (s *BetService) CancelBet(ctx context.Context, userID, betID uuid.UUID) (*domain.Bet, error) {
	peek, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if peek.UserID != userID {
		return nil, domain.ErrBetNotFound
	}

	var bet *domain.Bet
	err = inTx(ctx, s.db, "bet_service.CancelBet", func(tx *sqlx.Tx) error {
		ticket, err := s.tickets.GetForShare(ctx, tx, peek.TicketID)
		if err != nil {
			return err
		}
		bet, err = s.bets.GetForUpdate(ctx, tx, betID)
		if err != nil {
			return err
		}
		if !bet.IsPending() {
			return domain.ErrBetNotCancellable
		}
		now := s.now()
		if !ticket.CanPlaceBets(now) {
			return domain.ErrBettingClosed
		}

		if err := s.bets.Delete(ctx, tx, bet.ID); err != nil {
			return err
		}
		before, after, err := s.leagues.Credit(ctx, tx, bet.LeagueID, bet.UserID, bet.Amount)
		if err != nil {
			return err
		}
		ref := bet.ID
		entry := domain.NewLedgerEntry(before, after, domain.LedgerBetRefund, &ref,
			fmt.Sprintf("Bet on %q cancelled", ticket.Title), now)
		return s.leagues.LogEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BetsCancelled.Inc()
	s.log.Info("bet cancelled", zap.String("bet_id", bet.ID.String()), zap.String("user_id", userID.String()))
	s.afterCommit(bet.LeagueID, true, events.New(events.BetCancelled, bet.LeagueID, bet))
	return bet, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetBet returns a bet visible to any member of its league.
func (s *BetService) GetBet(ctx context.Context, userID, betID uuid.UUID) (*domain.Bet, error) {
	bet, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.leagues, bet.LeagueID, userID); err != nil {
		return nil, err
	}
	return bet, nil
}

// ListUserBets returns the caller's bets, optionally for one league.
func (s *BetService) ListUserBets(ctx context.Context, userID uuid.UUID, leagueID *uuid.UUID) ([]domain.Bet, error) {
	if leagueID != nil {
		if _, err := requireMember(ctx, s.leagues, *leagueID, userID); err != nil {
			return nil, err
		}
	}
	return s.bets.ListByUser(ctx, userID, leagueID)
}

// ListTicketBets returns every bet on a ticket to a league member.
func (s *BetService) ListTicketBets(ctx context.Context, userID, ticketID uuid.UUID) ([]domain.Bet, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.leagues, ticket.LeagueID, userID); err != nil {
		return nil, err
	}
	return s.bets.ListByTicket(ctx, ticketID)
}

// ListLeagueBets returns a league's bets, optionally filtered by status.
func (s *BetService) ListLeagueBets(ctx context.Context, userID, leagueID uuid.UUID, status *domain.BetStatus) ([]domain.Bet, error) {
	if _, err := requireMember(ctx, s.leagues, leagueID, userID); err != nil {
		return nil, err
	}
	return s.bets.ListByLeague(ctx, leagueID, status)
}

// RecentLeagueBets returns the latest bets in a league for the activity feed.
func (s *BetService) RecentLeagueBets(ctx context.Context, userID, leagueID uuid.UUID, limit int) ([]domain.Bet, error) {
	if _, err := requireMember(ctx, s.leagues, leagueID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bets.ListRecentByLeague(ctx, leagueID, limit)
}

// MyBetOnTicket returns the caller's bet on a ticket, or ErrBetNotFound.
func (s *BetService) MyBetOnTicket(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Bet, error) {
	return s.bets.GetUserBetOnTicket(ctx, userID, ticketID)
}

// UserStats aggregates the caller's betting record.
func (s *BetService) UserStats(ctx context.Context, userID uuid.UUID, leagueID *uuid.UUID) (domain.BetStats, error) {
	if leagueID != nil {
		if _, err := requireMember(ctx, s.leagues, *leagueID, userID); err != nil {
			return domain.BetStats{}, err
		}
	}
	return s.bets.Stats(ctx, userID, leagueID)
}
