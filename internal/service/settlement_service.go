package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/metrics"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SettlementService resolves tickets and pays out winning bets.
type SettlementService struct {
	postCommit
	db      *sqlx.DB
	tickets *repository.TicketRepository
	bets    *repository.BetRepository
	leagues *repository.LeagueRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	db *sqlx.DB,
	tickets *repository.TicketRepository,
	bets *repository.BetRepository,
	leagues *repository.LeagueRepository,
	log *zap.Logger,
	m *metrics.Metrics,
) *SettlementService {
	return &SettlementService{
		postCommit: newPostCommit(log, leagues),
		db:         db,
		tickets:    tickets,
		bets:       bets,
		leagues:    leagues,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ResolveTicket records the winning option and settles every bet on the
// ticket in one transaction:
//
//  1. lock the ticket FOR UPDATE and check the actor is a league admin
//  2. ticket.Resolve, which rejects an already resolved ticket
//  3. lock the bets and mark each won or lost
//  4. credit each winner's payout once, with a ledger entry
//  5. persist the ticket and commit
//
// A second call on the same ticket fails with ErrInvalidTransition.
func (s *SettlementService) ResolveTicket(ctx context.Context, actorID, ticketID uuid.UUID, winningOption string) (*domain.SettlementResult, error) {
	var (
		result   domain.SettlementResult
		leagueID uuid.UUID
	)
	err := inTx(ctx, s.db, "settlement_service.ResolveTicket", func(tx *sqlx.Tx) error {
		ticket, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		leagueID = ticket.LeagueID
		if _, err := requireAdmin(ctx, s.leagues, ticket.LeagueID, actorID); err != nil {
			return err
		}

		now := s.now()
		if err := ticket.Resolve(winningOption, now); err != nil {
			return err
		}

		bets, err := s.bets.ListByTicketForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		settlement := domain.SettleBets(ticketID, bets, winningOption, now)

		for i, b := range settlement.Bets {
			if !bets[i].IsPending() {
				continue
			}
			if err := s.bets.UpdateStatus(ctx, tx, b.ID, b.Status, b.SettledAt); err != nil {
				return err
			}
		}

		ref := ticket.ID
		for _, userID := range sortedUserIDs(settlement.Credits) {
			amount := settlement.Credits[userID]
			before, after, err := s.leagues.Credit(ctx, tx, ticket.LeagueID, userID, amount)
			if err != nil {
				return fmt.Errorf("credit %s: %w", userID, err)
			}
			entry := domain.NewLedgerEntry(before, after, domain.LedgerBetPayout, &ref,
				fmt.Sprintf("Won %q: %s", ticket.Title, winningOption), now)
			if err := s.leagues.LogEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		if err := s.tickets.Update(ctx, tx, ticket); err != nil {
			return err
		}
		result = settlement.Result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TicketsResolved.Inc()
	s.metrics.BetsSettled.WithLabelValues(string(domain.BetWon)).Add(float64(result.WonCount))
	s.metrics.BetsSettled.WithLabelValues(string(domain.BetLost)).Add(float64(result.LostCount))
	s.metrics.PayoutTotal.Add(result.TotalPaidOut.InexactFloat64())
	s.log.Info("ticket resolved",
		zap.String("ticket_id", ticketID.String()),
		zap.String("winning_option", winningOption),
		zap.Int("won", result.WonCount),
		zap.Int("lost", result.LostCount),
		zap.String("paid_out", result.TotalPaidOut.String()))
	s.afterCommit(leagueID, result.WonCount > 0, events.New(events.TicketResolved, leagueID, result))
	return &result, nil
}
