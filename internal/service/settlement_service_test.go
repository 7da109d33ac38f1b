package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/metrics"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettlementService(db *sqlx.DB) (*service.SettlementService, *metrics.Metrics) {
	m := metrics.NewUnregistered()
	return service.NewSettlementService(db,
		repository.NewTicketRepository(db),
		repository.NewBetRepository(db),
		repository.NewLeagueRepository(db),
		zap.NewNop(), m), m
}

// Alice stakes 100 on Team A at 2.0, Bob stakes 50 on Team B at 1.5.
// Team A wins: Alice is credited 200 once, Bob gets nothing.
func TestSettlementService_TeamAWins(t *testing.T) {
	db, mock := newMockDB(t)
	svc, m := newSettlementService(db)
	ticketID, leagueID := uuid.New(), uuid.New()
	adminID, alice, bob := uuid.New(), uuid.New(), uuid.New()
	aliceBet, bobBet := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tickets WHERE id = .+ FOR UPDATE`).WithArgs(ticketID).
		WillReturnRows(teamTicket(ticketID, leagueID, "closed", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WithArgs(leagueID, adminID).
		WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectQuery(`FROM bets WHERE ticket_id = .+ FOR UPDATE`).WithArgs(ticketID).
		WillReturnRows(sqlmock.NewRows(betCols).
			AddRow(aliceBet.String(), alice.String(), leagueID.String(), ticketID.String(),
				"100", "Team A", "2.0", "200", "pending", now, nil).
			AddRow(bobBet.String(), bob.String(), leagueID.String(), ticketID.String(),
				"50", "Team B", "1.5", "75", "pending", now, nil))
	mock.ExpectExec(`UPDATE bets SET status`).
		WithArgs("won", sqlmock.AnyArg(), aliceBet).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bets SET status`).
		WithArgs("lost", sqlmock.AnyArg(), bobBet).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FOR UPDATE OF m`).WithArgs(leagueID, alice).
		WillReturnRows(memberRow(leagueID, alice, "900", false))
	mock.ExpectExec(`UPDATE league_members SET balance`).
		WithArgs(sqlmock.AnyArg(), leagueID, alice).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tickets`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM ticket_options`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO ticket_options`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO ticket_options`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.ResolveTicket(context.Background(), adminID, ticketID, "Team A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.WonCount)
	assert.Equal(t, 1, res.LostCount)
	assert.Equal(t, 2, res.Total)
	assert.True(t, res.TotalPaidOut.Equal(decimal.NewFromInt(200)), res.TotalPaidOut.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicketsResolved))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementService_SecondResolveRejected(t *testing.T) {
	db, mock := newMockDB(t)
	svc, _ := newSettlementService(db)
	ticketID, leagueID, adminID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(teamTicket(ticketID, leagueID, "resolved", "Team A", nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectRollback()

	_, err := svc.ResolveTicket(context.Background(), adminID, ticketID, "Team A")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet(), "no bet or balance is touched")
}

func TestSettlementService_UnknownWinningOption(t *testing.T) {
	db, mock := newMockDB(t)
	svc, _ := newSettlementService(db)
	ticketID, leagueID, adminID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(teamTicket(ticketID, leagueID, "open", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, adminID, "1000", true))
	mock.ExpectRollback()

	_, err := svc.ResolveTicket(context.Background(), adminID, ticketID, "Team C")
	require.ErrorIs(t, err, domain.ErrUnknownOption)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlementService_RequiresLeagueAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	svc, _ := newSettlementService(db)
	ticketID, leagueID, userID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(teamTicket(ticketID, leagueID, "open", nil, nil))
	mock.ExpectQuery(`FROM ticket_options`).WillReturnRows(teamOptions(ticketID))
	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, userID, "1000", false))
	mock.ExpectRollback()

	_, err := svc.ResolveTicket(context.Background(), userID, ticketID, "Team A")
	require.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
