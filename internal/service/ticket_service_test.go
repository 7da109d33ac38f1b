package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chanPublisher hands every published event to the test goroutine.
type chanPublisher chan events.Event

func (c chanPublisher) Publish(_ context.Context, e events.Event) error {
	c <- e
	return nil
}

func newTicketService(db *sqlx.DB) *service.TicketService {
	return service.NewTicketService(db,
		repository.NewTicketRepository(db),
		repository.NewLeagueRepository(db),
		zap.NewNop())
}

func awaitEvent(t *testing.T, ch chanPublisher) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return events.Event{}
	}
}

func TestTicketService_CreateMoneyline(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	pub := make(chanPublisher, 1)
	svc.SetPublisher(pub)
	leagueID, adminID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM league_members m`).WithArgs(leagueID, adminID).
		WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectQuery(`FROM leagues WHERE id`).WithArgs(leagueID).
		WillReturnRows(leagueRow(leagueID, adminID, "active"))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tickets`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ticket_options`).
		WithArgs(sqlmock.AnyArg(), 0, "Team A", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ticket_options`).
		WithArgs(sqlmock.AnyArg(), 1, "Team B", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ticket, err := svc.CreateMoneyline(context.Background(), adminID, leagueID, service.CreateMoneylineRequest{
		Title: "Team A vs Team B",
		Options: []domain.OptionInput{
			{Text: "Team A", Odds: decimal.RequireFromString("2.0")},
			{Text: "Team B", Odds: decimal.RequireFromString("1.5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketOpen, ticket.Status)
	assert.Equal(t, domain.TicketMoneyline, ticket.Type)
	assert.Len(t, ticket.Options, 2)
	assert.NoError(t, mock.ExpectationsWereMet())

	e := awaitEvent(t, pub)
	assert.Equal(t, events.TicketCreated, e.Type)
	assert.Equal(t, leagueID, e.LeagueID)
}

func TestTicketService_CreateInPausedLeague(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	leagueID, adminID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectQuery(`FROM leagues WHERE id`).WillReturnRows(leagueRow(leagueID, adminID, "paused"))

	_, err := svc.CreateOverUnder(context.Background(), adminID, leagueID, service.CreateOverUnderRequest{
		Title:     "Total goals",
		Target:    decimal.RequireFromString("2.5"),
		OverOdds:  decimal.RequireFromString("1.9"),
		UnderOdds: decimal.RequireFromString("1.9"),
	})
	require.ErrorIs(t, err, domain.ErrLeagueNotActive)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is written")
}

func TestTicketService_CreateRequiresLeagueAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	leagueID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, userID, "1000", false))

	_, err := svc.CreateMoneyline(context.Background(), userID, leagueID, service.CreateMoneylineRequest{Title: "x"})
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestTicketService_CloseTicket(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	ticketID, leagueID, adminID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tickets WHERE id = .+ FOR UPDATE`).WithArgs(ticketID).
		WillReturnRows(teamTicket(ticketID, leagueID, "open", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WithArgs(leagueID, adminID).
		WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectExec(`UPDATE tickets`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM ticket_options`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO ticket_options`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ticket_options`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ticket, err := svc.CloseTicket(context.Background(), adminID, ticketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketClosed, ticket.Status)
	assert.NotNil(t, ticket.ClosedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_CloseResolvedTicket(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	ticketID, leagueID := uuid.New(), uuid.New()

	// ForceClose skips the admin lookup but not the state machine.
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(teamTicket(ticketID, leagueID, "resolved", "Team A", nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectRollback()

	_, err := svc.ForceClose(context.Background(), ticketID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_RemoveOptionKeepsMinimum(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	ticketID, leagueID, adminID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(teamTicket(ticketID, leagueID, "open", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectRollback()

	_, err := svc.RemoveOption(context.Background(), adminID, ticketID, "Team B")
	require.ErrorIs(t, err, domain.ErrTooFewOptions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_GetTicketRequiresMembership(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	ticketID, leagueID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM tickets WHERE id`).WithArgs(ticketID).
		WillReturnRows(teamTicket(ticketID, leagueID, "open", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(sqlmock.NewRows(memberCols))

	_, err := svc.GetTicket(context.Background(), uuid.New(), ticketID)
	require.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestTicketService_CloseExpiredPublishes(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTicketService(db)
	pub := make(chanPublisher, 2)
	svc.SetPublisher(pub)
	leagueID := uuid.New()

	mock.ExpectQuery(`UPDATE tickets`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "league_id"}).
			AddRow(uuid.NewString(), leagueID.String()).
			AddRow(uuid.NewString(), leagueID.String()))

	n, err := svc.CloseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, events.TicketClosed, awaitEvent(t, pub).Type)
	assert.Equal(t, events.TicketClosed, awaitEvent(t, pub).Type)
}
