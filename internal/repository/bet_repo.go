package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const betColumns = `id, user_id, league_id, ticket_id, amount, selected_option, odds,
	potential_payout, status, placed_at, settled_at`

// BetRepository handles all database operations for Bets.
type BetRepository struct {
	db *sqlx.DB
}

// NewBetRepository creates a new BetRepository.
func NewBetRepository(db *sqlx.DB) *BetRepository {
	return &BetRepository{db: db}
}

// Create inserts a new bet inside an existing transaction. The
// (user_id, ticket_id) unique constraint surfaces as ErrDuplicateBet.
func (r *BetRepository) Create(ctx context.Context, tx *sqlx.Tx, b *domain.Bet) error {
	query := `
		INSERT INTO bets
			(id, user_id, league_id, ticket_id, amount, selected_option, odds, potential_payout, status, placed_at)
		VALUES
			(:id, :user_id, :league_id, :ticket_id, :amount, :selected_option, :odds, :potential_payout, :status, :placed_at)`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		if isPgUniqueViolation(err, "bets_user_ticket_unique") {
			return domain.ErrDuplicateBet
		}
		return fmt.Errorf("bet_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a bet by its primary key.
func (r *BetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByID: %w", err)
	}
	return &b, nil
}

// GetForUpdate fetches a bet and locks its row inside tx.
func (r *BetRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Bet, error) {
	var b domain.Bet
	err := tx.GetContext(ctx, &b, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetForUpdate: %w", err)
	}
	return &b, nil
}

// ExistsForUserTicket reports whether the user already holds a bet on the ticket.
func (r *BetRepository) ExistsForUserTicket(ctx context.Context, tx *sqlx.Tx, userID, ticketID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM bets WHERE user_id = $1 AND ticket_id = $2)`, userID, ticketID)
	if err != nil {
		return false, fmt.Errorf("bet_repo.ExistsForUserTicket: %w", err)
	}
	return exists, nil
}

// GetUserBetOnTicket returns the user's bet on a ticket, or ErrBetNotFound.
func (r *BetRepository) GetUserBetOnTicket(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b,
		`SELECT `+betColumns+` FROM bets WHERE user_id = $1 AND ticket_id = $2`, userID, ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetUserBetOnTicket: %w", err)
	}
	return &b, nil
}

// ListByUser returns a user's bets newest first, optionally limited to one league.
func (r *BetRepository) ListByUser(ctx context.Context, userID uuid.UUID, leagueID *uuid.UUID) ([]domain.Bet, error) {
	bets := []domain.Bet{}
	var err error
	if leagueID != nil {
		err = r.db.SelectContext(ctx, &bets,
			`SELECT `+betColumns+` FROM bets WHERE user_id = $1 AND league_id = $2 ORDER BY placed_at DESC`,
			userID, *leagueID)
	} else {
		err = r.db.SelectContext(ctx, &bets,
			`SELECT `+betColumns+` FROM bets WHERE user_id = $1 ORDER BY placed_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("bet_repo.ListByUser: %w", err)
	}
	return bets, nil
}

// ListByTicket returns every bet on a ticket in placement order.
func (r *BetRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.Bet, error) {
	bets := []domain.Bet{}
	if err := r.db.SelectContext(ctx, &bets,
		`SELECT `+betColumns+` FROM bets WHERE ticket_id = $1 ORDER BY placed_at ASC`, ticketID); err != nil {
		return nil, fmt.Errorf("bet_repo.ListByTicket: %w", err)
	}
	return bets, nil
}

// ListByTicketForUpdate returns and locks every bet on a ticket. Used by settlement.
func (r *BetRepository) ListByTicketForUpdate(ctx context.Context, tx *sqlx.Tx, ticketID uuid.UUID) ([]domain.Bet, error) {
	bets := []domain.Bet{}
	if err := tx.SelectContext(ctx, &bets,
		`SELECT `+betColumns+` FROM bets WHERE ticket_id = $1 ORDER BY placed_at ASC FOR UPDATE`, ticketID); err != nil {
		return nil, fmt.Errorf("bet_repo.ListByTicketForUpdate: %w", err)
	}
	return bets, nil
}

// ListByLeague returns a league's bets newest first, optionally filtered by status.
func (r *BetRepository) ListByLeague(ctx context.Context, leagueID uuid.UUID, status *domain.BetStatus) ([]domain.Bet, error) {
	bets := []domain.Bet{}
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &bets,
			`SELECT `+betColumns+` FROM bets WHERE league_id = $1 AND status = $2 ORDER BY placed_at DESC`,
			leagueID, string(*status))
	} else {
		err = r.db.SelectContext(ctx, &bets,
			`SELECT `+betColumns+` FROM bets WHERE league_id = $1 ORDER BY placed_at DESC`, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("bet_repo.ListByLeague: %w", err)
	}
	return bets, nil
}

// ListRecentByLeague returns the most recent bets in a league.
func (r *BetRepository) ListRecentByLeague(ctx context.Context, leagueID uuid.UUID, limit int) ([]domain.Bet, error) {
	bets := []domain.Bet{}
	if err := r.db.SelectContext(ctx, &bets,
		`SELECT `+betColumns+` FROM bets WHERE league_id = $1 ORDER BY placed_at DESC LIMIT $2`,
		leagueID, limit); err != nil {
		return nil, fmt.Errorf("bet_repo.ListRecentByLeague: %w", err)
	}
	return bets, nil
}

// CountPendingForMember returns the number of pending bets a user holds in a league.
func (r *BetRepository) CountPendingForMember(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID) (int, error) {
	var n int
	if err := tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM bets WHERE league_id = $1 AND user_id = $2 AND status = 'pending'`,
		leagueID, userID); err != nil {
		return 0, fmt.Errorf("bet_repo.CountPendingForMember: %w", err)
	}
	return n, nil
}

// UpdateStatus sets the settled status of a bet inside a transaction.
func (r *BetRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, betID uuid.UUID, status domain.BetStatus, settledAt *time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bets SET status = $1, settled_at = $2 WHERE id = $3`,
		string(status), settledAt, betID)
	if err != nil {
		return fmt.Errorf("bet_repo.UpdateStatus: %w", err)
	}
	return nil
}

// Delete removes a pending bet inside a transaction (cancellation path).
// Returns ErrBetNotCancellable when the bet is no longer pending.
func (r *BetRepository) Delete(ctx context.Context, tx *sqlx.Tx, betID uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bets WHERE id = $1 AND status = 'pending'`, betID)
	if err != nil {
		return fmt.Errorf("bet_repo.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrBetNotCancellable
	}
	return nil
}

// Stats aggregates a user's bets, optionally limited to one league.
func (r *BetRepository) Stats(ctx context.Context, userID uuid.UUID, leagueID *uuid.UUID) (domain.BetStats, error) {
	bets, err := r.ListByUser(ctx, userID, leagueID)
	if err != nil {
		return domain.BetStats{}, fmt.Errorf("bet_repo.Stats: %w", err)
	}
	return domain.ComputeStats(bets), nil
}

// Totals returns the count of pending bets and the total amount ever staked.
func (r *BetRepository) Totals(ctx context.Context) (pending int, staked decimal.Decimal, err error) {
	var row struct {
		Pending int             `db:"pending"`
		Staked  decimal.Decimal `db:"staked"`
	}
	err = r.db.GetContext(ctx, &row, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending') AS pending,
		       COALESCE(SUM(amount), 0)                   AS staked
		FROM bets`)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("bet_repo.Totals: %w", err)
	}
	return row.Pending, row.Staked, nil
}
