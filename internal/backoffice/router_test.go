package backoffice_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/evetabi/betleague/internal/backoffice"
	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCfg(allowedIPs string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "development", BackofficeAllowedIPs: allowedIPs},
		JWT: config.JWTConfig{
			AccessSecret:  "bo-access-secret-abcdefghijklmnop",
			RefreshSecret: "bo-refresh-secret-abcdefghijklmnop",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
	}
}

func token(t *testing.T, cfg *config.Config, role string) string {
	t.Helper()
	now := time.Now()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role:      role,
		TokenType: "access",
	}).SignedString([]byte(cfg.JWT.AccessSecret))
	require.NoError(t, err)
	return s
}

func newRouter(t *testing.T, cfg *config.Config) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "postgres")

	return backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:    service.NewAuthService(nil, cfg, zap.NewNop()),
		UserRepo:   repository.NewUserRepository(db),
		LeagueRepo: repository.NewLeagueRepository(db),
		TicketRepo: repository.NewTicketRepository(db),
		BetRepo:    repository.NewBetRepository(db),
		Cfg:        cfg,
	}), mock
}

func get(h http.Handler, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBackoffice_RequiresToken(t *testing.T) {
	h, _ := newRouter(t, testCfg(""))
	assert.Equal(t, http.StatusUnauthorized, get(h, "/admin/dashboard", "").Code)
}

func TestBackoffice_RejectsNonAdmin(t *testing.T) {
	cfg := testCfg("")
	h, _ := newRouter(t, cfg)
	assert.Equal(t, http.StatusForbidden, get(h, "/admin/dashboard", token(t, cfg, "user")).Code)
}

func TestBackoffice_IPWhitelist(t *testing.T) {
	cfg := testCfg("10.0.0.1, 10.0.0.2")
	h, _ := newRouter(t, cfg)
	// httptest requests originate from 192.0.2.1.
	rr := get(h, "/admin/dashboard", token(t, cfg, "admin"))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "ERR_IP_FORBIDDEN")
}

func TestBackoffice_Dashboard(t *testing.T) {
	cfg := testCfg("")
	h, mock := newRouter(t, cfg)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`FROM leagues GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow("active", 3).AddRow("completed", 1))
	mock.ExpectQuery(`FROM tickets WHERE status = 'open'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`FROM bets`).
		WillReturnRows(sqlmock.NewRows([]string{"pending", "staked"}).AddRow(5, "1250.50"))

	rr := get(h, "/admin/dashboard", token(t, cfg, "admin"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Data struct {
			Users   int `json:"users"`
			Leagues struct {
				Active, Paused, Completed int
			} `json:"leagues"`
			OpenTickets int    `json:"open_tickets"`
			PendingBets int    `json:"pending_bets"`
			TotalStaked string `json:"total_staked"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Data.Users)
	assert.Equal(t, 3, body.Data.Leagues.Active)
	assert.Equal(t, 0, body.Data.Leagues.Paused)
	assert.Equal(t, 7, body.Data.OpenTickets)
	assert.Equal(t, 5, body.Data.PendingBets)
	assert.Equal(t, "1250.5", body.Data.TotalStaked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackoffice_SuspendUnknownUser(t *testing.T) {
	cfg := testCfg("")
	h, mock := newRouter(t, cfg)
	id := uuid.New()

	mock.ExpectExec(`UPDATE users SET is_active`).
		WithArgs(false, id).WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodPost, "/admin/users/"+id.String()+"/suspend", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, cfg, "admin"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
