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
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "email", "username", "password_hash", "role", "is_active", "created_at", "updated_at"}

func TestAuthService_RegisterIssuesTokens(t *testing.T) {
	db, mock := newMockDB(t)
	svc := service.NewAuthService(repository.NewUserRepository(db), testConfig(), zap.NewNop())

	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := svc.Register(context.Background(), service.RegisterRequest{
		Username: "alice", Email: "Alice@Example.com", Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id)

	_, err = svc.ValidateAccessToken(resp.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "refresh token is not an access token")
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	db, mock := newMockDB(t)
	svc := service.NewAuthService(repository.NewUserRepository(db), testConfig(), zap.NewNop())

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	_, err := svc.Register(context.Background(), service.RegisterRequest{
		Username: "alice", Email: "a@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestAuthService_LoginByUsernameOrEmail(t *testing.T) {
	db, mock := newMockDB(t)
	svc := service.NewAuthService(repository.NewUserRepository(db), testConfig(), zap.NewNop())
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(userCols).AddRow(id.String(), "alice@example.com", "alice",
			string(hash), "user", true, time.Now(), time.Now())
	}

	mock.ExpectQuery(`WHERE username = `).WithArgs("alice").WillReturnRows(row())
	mock.ExpectQuery(`WHERE lower\(email\)`).WithArgs("alice@example.com").WillReturnRows(row())
	mock.ExpectQuery(`WHERE username = `).WillReturnRows(row())

	_, err = svc.Login(context.Background(), service.LoginRequest{Login: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), service.LoginRequest{Login: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), service.LoginRequest{Login: "alice", Password: "wrong-horse"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := service.NewAuthService(repository.NewUserRepository(db), testConfig(), zap.NewNop())

	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows(userCols))

	_, err := svc.Login(context.Background(), service.LoginRequest{Login: "ghost", Password: "whatever1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_ValidateGarbage(t *testing.T) {
	svc := service.NewAuthService(nil, testConfig(), zap.NewNop())
	_, err := svc.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
