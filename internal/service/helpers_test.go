package service_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/config"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret-for-tests",
			RefreshSecret: "refresh-secret-for-tests",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
		League: config.LeagueConfig{
			DefaultStartingBalance: 1000,
			MinStartingBalance:     100,
			MaxStartingBalance:     10000,
			MinBet:                 1,
			MaxBet:                 10000,
		},
	}
}

var (
	leagueCols = []string{"id", "name", "description", "creator_id", "starting_balance", "status",
		"invite_code", "end_date", "created_at", "updated_at"}
	memberCols = []string{"league_id", "user_id", "username", "balance", "is_admin", "join_seq", "joined_at"}
	ticketCols = []string{"id", "league_id", "title", "description", "ticket_type", "target_value", "status",
		"winning_option", "created_by", "closes_at", "created_at", "closed_at", "resolved_at"}
	optionCols = []string{"ticket_id", "position", "option_text", "odds"}
	betCols    = []string{"id", "user_id", "league_id", "ticket_id", "amount", "selected_option", "odds",
		"potential_payout", "status", "placed_at", "settled_at"}
)

func leagueRow(id, creatorID uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows(leagueCols).AddRow(
		id.String(), "Sunday League", "", creatorID.String(), "1000", status, "ABCD1234", nil, time.Now(), time.Now())
}

func memberRow(leagueID, userID uuid.UUID, balance string, admin bool) *sqlmock.Rows {
	return sqlmock.NewRows(memberCols).
		AddRow(leagueID.String(), userID.String(), "alice", balance, admin, int64(1), time.Now())
}

// teamTicket is the "Team A vs Team B" moneyline: Team A at 2.0, Team B at 1.5.
func teamTicket(id, leagueID uuid.UUID, status string, winner any, closesAt any) *sqlmock.Rows {
	return sqlmock.NewRows(ticketCols).AddRow(
		id.String(), leagueID.String(), "Team A vs Team B", "", "moneyline", nil, status,
		winner, uuid.NewString(), closesAt, time.Now(), nil, nil)
}

func teamOptions(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(optionCols).
		AddRow(id.String(), 0, "Team A", "2.0").
		AddRow(id.String(), 1, "Team B", "1.5")
}
