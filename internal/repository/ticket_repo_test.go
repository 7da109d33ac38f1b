package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketCols = []string{
	"id", "league_id", "title", "description", "ticket_type", "target_value", "status",
	"winning_option", "created_by", "closes_at", "created_at", "closed_at", "resolved_at",
}

var optionCols = []string{"ticket_id", "position", "option_text", "odds"}

func ticketRows(id, leagueID uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows(ticketCols).AddRow(
		id.String(), leagueID.String(), "Team A vs Team B", "", "moneyline", nil, status,
		nil, uuid.NewString(), nil, time.Now(), nil, nil,
	)
}

func optionRows(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(optionCols).
		AddRow(id.String(), 0, "Team A", "2.0").
		AddRow(id.String(), 1, "Team B", "1.5")
}

func TestTicketRepository_GetForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewTicketRepository(db)
	ctx := context.Background()
	id, leagueID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tickets WHERE id = .+ FOR UPDATE`).WithArgs(id).
		WillReturnRows(ticketRows(id, leagueID, "open"))
	mock.ExpectQuery(`FROM ticket_options WHERE ticket_id`).WithArgs(id).
		WillReturnRows(optionRows(id))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	tk, err := repo.GetForUpdate(ctx, tx, id)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, domain.TicketOpen, tk.Status)
	assert.Equal(t, domain.TicketMoneyline, tk.Type)
	require.Len(t, tk.Options, 2)
	assert.Equal(t, "Team A", tk.Options[0].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketRepository_RejectsMalformedRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewTicketRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`FROM tickets WHERE id`).WithArgs(id).
		WillReturnRows(ticketRows(id, uuid.New(), "archived"))
	mock.ExpectQuery(`FROM ticket_options`).WithArgs(id).
		WillReturnRows(optionRows(id))

	_, err := repo.GetByID(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestTicketRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewTicketRepository(db)

	mock.ExpectQuery(`FROM tickets WHERE id`).WillReturnRows(sqlmock.NewRows(ticketCols))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
}

func TestTicketRepository_ListByLeagueAttachesOptions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewTicketRepository(db)
	leagueID := uuid.New()
	id1, id2 := uuid.New(), uuid.New()

	rows := sqlmock.NewRows(ticketCols).
		AddRow(id1.String(), leagueID.String(), "t1", "", "moneyline", nil, "open", nil, uuid.NewString(), nil, time.Now(), nil, nil).
		AddRow(id2.String(), leagueID.String(), "t2", "", "over_under", "45.5", "resolved", "Over 45.5", uuid.NewString(), nil, time.Now(), nil, time.Now())
	mock.ExpectQuery(`FROM tickets WHERE league_id = .+ ORDER BY created_at DESC`).
		WithArgs(leagueID).WillReturnRows(rows)
	mock.ExpectQuery(`FROM ticket_options WHERE ticket_id = ANY`).
		WillReturnRows(sqlmock.NewRows(optionCols).
			AddRow(id1.String(), 0, "A", "2").
			AddRow(id1.String(), 1, "B", "2").
			AddRow(id2.String(), 0, "Over 45.5", "1.9").
			AddRow(id2.String(), 1, "Under 45.5", "1.9"))

	tickets, err := repo.ListByLeague(context.Background(), leagueID, nil)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Len(t, tickets[0].Options, 2)
	assert.Equal(t, "Over 45.5", *tickets[1].WinningOption)
	assert.Equal(t, "Under 45.5", tickets[1].Options[1].Text)
}
