package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ──────────────────────────────────────────────────────────────────────────────
// Request / Response types
// ──────────────────────────────────────────────────────────────────────────────

// RegisterRequest contains the fields required to create a new user account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest accepts either an email address or a username in Login.
type LoginRequest struct {
	Login    string `json:"login"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful registration, login or refresh.
type AuthResponse struct {
	User         domain.PublicProfile `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// TokenPair holds both tokens returned by generateTokenPair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// AppClaims extends jwt.RegisteredClaims with application-specific fields.
type AppClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"` // "access" or "refresh"
}

// UserID parses the subject claim.
func (c *AppClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return id, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthService
// ──────────────────────────────────────────────────────────────────────────────

// AuthService handles user registration, login, and JWT token operations.
type AuthService struct {
	users *repository.UserRepository
	cfg   config.JWTConfig
	log   *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users *repository.UserRepository, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{users: users, cfg: cfg.JWT, log: log}
}

// Register creates a new user account and returns a fresh token pair.
// League balances are granted per league on join, not at registration.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service.Register: hash: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.respond(user)
}

// Login validates credentials and returns a fresh token pair. The login field
// is treated as an email when it contains "@".
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	login := strings.TrimSpace(req.Login)
	var (
		user *domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.users.GetByEmail(ctx, login)
	} else {
		user, err = s.users.GetByUsername(ctx, login)
	}
	if err != nil {
		// Map not-found to a generic credential error to prevent user enumeration.
		if domain.IsNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return s.respond(user)
}

// RefreshTokens validates a refresh token and issues a new token pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, domain.ErrTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return s.respond(user)
}

// ValidateAccessToken is used by the JWT middleware.
func (s *AuthService) ValidateAccessToken(token string) (*AppClaims, error) {
	claims, err := s.parseToken(token, s.cfg.AccessSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// GetUser returns a user's public profile.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (domain.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.PublicProfile{}, err
	}
	return u.ToPublicProfile(), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Token helpers
// ──────────────────────────────────────────────────────────────────────────────

func (s *AuthService) respond(u *domain.User) (*AuthResponse, error) {
	pair, err := s.generateTokenPair(u.ID, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("auth_service: tokens: %w", err)
	}
	return &AuthResponse{
		User:         u.ToPublicProfile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// generateTokenPair creates a signed access token (AccessTTL) and a signed
// refresh token (RefreshTTL), each under its own secret.
func (s *AuthService) generateTokenPair(userID uuid.UUID, role string) (TokenPair, error) {
	now := time.Now().UTC()

	access, err := sign(AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		Role:      role,
		TokenType: tokenTypeAccess,
	}, s.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := sign(AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
		Role:      role,
		TokenType: tokenTypeRefresh,
	}, s.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func sign(claims AppClaims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseToken validates the token signature, algorithm, and expiry.
func (s *AuthService) parseToken(tokenString, secret string) (*AppClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AppClaims)
	if !ok || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
