package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLeagueService(db *sqlx.DB) *service.LeagueService {
	return service.NewLeagueService(db,
		repository.NewLeagueRepository(db),
		repository.NewBetRepository(db),
		testConfig(), zap.NewNop())
}

func TestLeagueService_CreateLeagueRetriesInviteCollision(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	creator := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO leagues`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "leagues_invite_code_key"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO leagues`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO league_members`).
		WillReturnRows(sqlmock.NewRows([]string{"join_seq", "joined_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectExec(`INSERT INTO ledger_entries`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	league, err := svc.CreateLeague(context.Background(), creator, service.CreateLeagueRequest{Name: "  Office pool "})
	require.NoError(t, err)
	assert.Equal(t, "Office pool", league.Name)
	assert.Len(t, league.InviteCode, domain.InviteCodeLength)
	assert.True(t, league.StartingBalance.Equal(decimal.NewFromInt(1000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueService_CreateLeagueRejectsStartingBalance(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newLeagueService(db)

	for _, b := range []string{"50", "20000", "1000.005"} {
		bal := decimal.RequireFromString(b)
		_, err := svc.CreateLeague(context.Background(), uuid.New(),
			service.CreateLeagueRequest{Name: "x", StartingBalance: &bal})
		assert.ErrorIs(t, err, domain.ErrInvalidStartingBalance)
	}
}

func TestLeagueService_JoinTwice(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	leagueID := uuid.New()

	mock.ExpectQuery(`FROM leagues WHERE invite_code`).WithArgs("ABCD1234").
		WillReturnRows(leagueRow(leagueID, uuid.New(), "active"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO league_members`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "league_members_pkey"})
	mock.ExpectRollback()

	_, err := svc.JoinByInviteCode(context.Background(), uuid.New(), " abcd1234 ")
	require.ErrorIs(t, err, domain.ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueService_JoinPausedLeague(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)

	mock.ExpectQuery(`FROM leagues WHERE invite_code`).
		WillReturnRows(leagueRow(uuid.New(), uuid.New(), "paused"))

	_, err := svc.JoinByInviteCode(context.Background(), uuid.New(), "ABCD1234")
	require.ErrorIs(t, err, domain.ErrLeagueNotActive)
}

func TestLeagueService_CreatorCannotLeave(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	leagueID, creator := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM leagues WHERE id`).WillReturnRows(leagueRow(leagueID, creator, "active"))

	err := svc.Leave(context.Background(), creator, leagueID)
	require.ErrorIs(t, err, domain.ErrCreatorCannotLeave)
}

func TestLeagueService_LeaveWithPendingBets(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	leagueID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM leagues WHERE id`).WillReturnRows(leagueRow(leagueID, uuid.New(), "active"))
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF m`).WillReturnRows(memberRow(leagueID, userID, "900", false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bets`).WithArgs(leagueID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := svc.Leave(context.Background(), userID, leagueID)
	require.ErrorIs(t, err, domain.ErrMemberHasPendingBets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeagueService_DemoteCreator(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	leagueID, creator, admin := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, admin, "1000", true))
	mock.ExpectQuery(`FROM leagues WHERE id`).WillReturnRows(leagueRow(leagueID, creator, "active"))

	err := svc.DemoteAdmin(context.Background(), admin, leagueID, creator)
	require.ErrorIs(t, err, domain.ErrCannotDemoteCreator)
}

func TestLeagueService_SetStatusRequiresAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)
	leagueID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(memberRow(leagueID, userID, "1000", false))

	err := svc.SetStatus(context.Background(), userID, leagueID, domain.LeaguePaused)
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	err = svc.SetStatus(context.Background(), userID, leagueID, domain.LeagueStatus("archived"))
	require.ErrorIs(t, err, domain.ErrInvalidLeagueStatus)
}

func TestLeagueService_LeaderboardRequiresMembership(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newLeagueService(db)

	mock.ExpectQuery(`FROM league_members m`).WillReturnRows(sqlmock.NewRows(memberCols))

	_, err := svc.Leaderboard(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotAMember)
}
