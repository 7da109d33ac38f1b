package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var betCols = []string{
	"id", "user_id", "league_id", "ticket_id", "amount", "selected_option", "odds",
	"potential_payout", "status", "placed_at", "settled_at",
}

func TestBetRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewBetRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bets`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "bets_user_ticket_unique"})
	mock.ExpectRollback()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	err = repo.Create(ctx, tx, &domain.Bet{
		ID: uuid.New(), Amount: decimal.NewFromInt(10), Status: domain.BetPending, PlacedAt: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrDuplicateBet)
	require.NoError(t, tx.Rollback())
}

func TestBetRepository_DeleteOnlyPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewBetRepository(db)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM bets WHERE id = .+ AND status = 'pending'`).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Delete(ctx, tx, id), domain.ErrBetNotCancellable)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBetRepository_StatsFromRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewBetRepository(db)
	userID, leagueID := uuid.New(), uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(betCols).
		AddRow(uuid.NewString(), userID.String(), leagueID.String(), uuid.NewString(), "100", "Team A", "2", "200", "won", now, now).
		AddRow(uuid.NewString(), userID.String(), leagueID.String(), uuid.NewString(), "50", "Team B", "1.5", "75", "lost", now, now).
		AddRow(uuid.NewString(), userID.String(), leagueID.String(), uuid.NewString(), "10", "X", "3", "30", "pending", now, nil)
	mock.ExpectQuery(`FROM bets WHERE user_id = .+ AND league_id = `).
		WithArgs(userID, leagueID).WillReturnRows(rows)

	st, err := repo.Stats(context.Background(), userID, &leagueID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBets)
	assert.Equal(t, 1, st.WonBets)
	assert.Equal(t, 1, st.PendingBets)
	assert.True(t, st.TotalWagered.Equal(decimal.NewFromInt(160)), st.TotalWagered.String())
	assert.True(t, st.NetProfit.Equal(decimal.NewFromInt(40)), st.NetProfit.String())
}

func TestBetRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewBetRepository(db)

	mock.ExpectQuery(`FROM bets WHERE id`).WillReturnRows(sqlmock.NewRows(betCols))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrBetNotFound)
}
