package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// inviteCodeAttempts bounds invite code regeneration on collision.
const inviteCodeAttempts = 5

// ──────────────────────────────────────────────────────────────────────────────
// Request types
// ──────────────────────────────────────────────────────────────────────────────

// CreateLeagueRequest holds the fields for a new league. A nil
// StartingBalance selects the configured default.
type CreateLeagueRequest struct {
	Name            string           `json:"name"             binding:"required,min=1,max=100"`
	Description     string           `json:"description"      binding:"max=500"`
	StartingBalance *decimal.Decimal `json:"starting_balance"`
	EndDate         *time.Time       `json:"end_date"`
}

// UpdateLeagueRequest carries optional settings changes; nil fields are kept.
type UpdateLeagueRequest struct {
	Name            *string          `json:"name"             binding:"omitempty,min=1,max=100"`
	Description     *string          `json:"description"      binding:"omitempty,max=500"`
	StartingBalance *decimal.Decimal `json:"starting_balance"`
	EndDate         *time.Time       `json:"end_date"`
}

// LeagueDetail is a league with its roster, as seen by one member.
type LeagueDetail struct {
	*domain.League
	Members []domain.Member `json:"members"`
	Me      *domain.Member  `json:"me"`
}

// ──────────────────────────────────────────────────────────────────────────────
// LeagueService
// ──────────────────────────────────────────────────────────────────────────────

// LeagueService manages leagues, memberships and the per-league ledger views.
type LeagueService struct {
	postCommit
	db      *sqlx.DB
	leagues *repository.LeagueRepository
	bets    *repository.BetRepository
	cfg     config.LeagueConfig
	now     func() time.Time
}

// NewLeagueService creates a LeagueService.
func NewLeagueService(
	db *sqlx.DB,
	leagues *repository.LeagueRepository,
	bets *repository.BetRepository,
	cfg *config.Config,
	log *zap.Logger,
) *LeagueService {
	return &LeagueService{
		postCommit: newPostCommit(log, leagues),
		db:         db,
		leagues:    leagues,
		bets:       bets,
		cfg:        cfg.League,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *LeagueService) validateStartingBalance(b decimal.Decimal) error {
	minB := decimal.NewFromFloat(s.cfg.MinStartingBalance)
	maxB := decimal.NewFromFloat(s.cfg.MaxStartingBalance)
	if b.LessThan(minB) || b.GreaterThan(maxB) || !domain.WithinPlaces(b, domain.MoneyPlaces) {
		return domain.ErrInvalidStartingBalance
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Create / join / leave
// ──────────────────────────────────────────────────────────────────────────────

// CreateLeague creates a league with a fresh invite code and seats the
// creator as its first admin member.
func (s *LeagueService) CreateLeague(ctx context.Context, creatorID uuid.UUID, req CreateLeagueRequest) (*domain.League, error) {
	balance := decimal.NewFromFloat(s.cfg.DefaultStartingBalance)
	if req.StartingBalance != nil {
		balance = *req.StartingBalance
	}
	if err := s.validateStartingBalance(balance); err != nil {
		return nil, err
	}

	now := s.now()
	league := &domain.League{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		CreatorID:       creatorID,
		StartingBalance: balance,
		Status:          domain.LeagueActive,
		EndDate:         req.EndDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 1; ; attempt++ {
		code, err := domain.NewInviteCode()
		if err != nil {
			return nil, err
		}
		league.InviteCode = code

		err = inTx(ctx, s.db, "league_service.CreateLeague", func(tx *sqlx.Tx) error {
			if err := s.leagues.Create(ctx, tx, league); err != nil {
				return err
			}
			return s.seatMember(ctx, tx, league, creatorID, true, now)
		})
		if errors.Is(err, repository.ErrInviteCodeTaken) && attempt < inviteCodeAttempts {
			s.log.Debug("invite code collision, regenerating", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	s.log.Info("league created",
		zap.String("league_id", league.ID.String()),
		zap.String("creator_id", creatorID.String()))
	return league, nil
}

// seatMember inserts a membership at the league's starting balance and logs
// the opening ledger entry.
func (s *LeagueService) seatMember(ctx context.Context, tx *sqlx.Tx, league *domain.League, userID uuid.UUID, admin bool, now time.Time) error {
	m := &domain.Member{
		LeagueID: league.ID,
		UserID:   userID,
		Balance:  league.StartingBalance,
		IsAdmin:  admin,
	}
	if err := s.leagues.AddMember(ctx, tx, m); err != nil {
		return err
	}
	empty := *m
	empty.Balance = decimal.Zero
	entry := domain.NewLedgerEntry(empty, *m, domain.LedgerStartingBalance, nil, "Starting balance", now)
	return s.leagues.LogEntry(ctx, tx, entry)
}

// JoinByInviteCode adds the user to the league behind code.
func (s *LeagueService) JoinByInviteCode(ctx context.Context, userID uuid.UUID, code string) (*domain.League, error) {
	league, err := s.leagues.GetByInviteCode(ctx, domain.NormalizeInviteCode(code))
	if err != nil {
		return nil, err
	}
	if !league.IsActive() {
		return nil, domain.ErrLeagueNotActive
	}

	err = inTx(ctx, s.db, "league_service.JoinByInviteCode", func(tx *sqlx.Tx) error {
		return s.seatMember(ctx, tx, league, userID, false, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(league.ID, true, events.New(events.MemberJoined, league.ID, map[string]string{"user_id": userID.String()}))
	return league, nil
}

// Leave removes the caller from a league. The creator cannot leave.
func (s *LeagueService) Leave(ctx context.Context, userID, leagueID uuid.UUID) error {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return err
	}
	if league.IsCreator(userID) {
		return domain.ErrCreatorCannotLeave
	}
	return s.removeMember(ctx, leagueID, userID)
}

// RemoveMember lets a league admin remove another member. The creator cannot
// be removed.
func (s *LeagueService) RemoveMember(ctx context.Context, actorID, leagueID, userID uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return err
	}
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return err
	}
	if league.IsCreator(userID) {
		return domain.ErrCreatorCannotLeave
	}
	return s.removeMember(ctx, leagueID, userID)
}

// removeMember drops the membership unless the member still has pending
// bets, which would otherwise settle against a missing ledger row.
func (s *LeagueService) removeMember(ctx context.Context, leagueID, userID uuid.UUID) error {
	err := inTx(ctx, s.db, "league_service.removeMember", func(tx *sqlx.Tx) error {
		if _, err := s.leagues.LockMember(ctx, tx, leagueID, userID); err != nil {
			return err
		}
		pending, err := s.bets.CountPendingForMember(ctx, tx, leagueID, userID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return domain.ErrMemberHasPendingBets
		}
		return s.leagues.RemoveMember(ctx, tx, leagueID, userID)
	})
	if err != nil {
		return err
	}
	s.afterCommit(leagueID, true, events.New(events.MemberLeft, leagueID, map[string]string{"user_id": userID.String()}))
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Admin management
// ──────────────────────────────────────────────────────────────────────────────

// PromoteAdmin grants the league admin flag to a member.
func (s *LeagueService) PromoteAdmin(ctx context.Context, actorID, leagueID, userID uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return err
	}
	return s.leagues.SetAdmin(ctx, leagueID, userID, true)
}

// DemoteAdmin revokes the league admin flag. The creator always stays admin.
func (s *LeagueService) DemoteAdmin(ctx context.Context, actorID, leagueID, userID uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return err
	}
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return err
	}
	if league.IsCreator(userID) {
		return domain.ErrCannotDemoteCreator
	}
	return s.leagues.SetAdmin(ctx, leagueID, userID, false)
}

// UpdateSettings applies the non-nil fields of req. A new starting balance
// only affects members who join afterwards.
func (s *LeagueService) UpdateSettings(ctx context.Context, actorID, leagueID uuid.UUID, req UpdateLeagueRequest) (*domain.League, error) {
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return nil, err
	}
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		league.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		league.Description = strings.TrimSpace(*req.Description)
	}
	if req.StartingBalance != nil {
		if err := s.validateStartingBalance(*req.StartingBalance); err != nil {
			return nil, err
		}
		league.StartingBalance = *req.StartingBalance
	}
	if req.EndDate != nil {
		league.EndDate = req.EndDate
	}
	league.UpdatedAt = s.now()
	if err := s.leagues.Update(ctx, league); err != nil {
		return nil, err
	}
	return league, nil
}

// SetStatus changes the league status on behalf of a league admin.
func (s *LeagueService) SetStatus(ctx context.Context, actorID, leagueID uuid.UUID, status domain.LeagueStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidLeagueStatus
	}
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return err
	}
	return s.ForceStatus(ctx, leagueID, status)
}

// ForceStatus changes the league status without a membership check. Used by
// the back-office and the scheduler.
func (s *LeagueService) ForceStatus(ctx context.Context, leagueID uuid.UUID, status domain.LeagueStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidLeagueStatus
	}
	if err := s.leagues.SetStatus(ctx, leagueID, status); err != nil {
		return err
	}
	s.log.Info("league status changed", zap.String("league_id", leagueID.String()), zap.String("status", string(status)))
	s.afterCommit(leagueID, false, events.New(events.LeagueStatusChange, leagueID, map[string]string{"status": string(status)}))
	return nil
}

// CompleteExpired marks leagues past their end date as completed.
func (s *LeagueService) CompleteExpired(ctx context.Context) (int, error) {
	ids, err := s.leagues.CompleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.afterCommit(id, false, events.New(events.LeagueStatusChange, id,
			map[string]string{"status": string(domain.LeagueCompleted)}))
	}
	return len(ids), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetLeague returns the league with its roster. Members only.
func (s *LeagueService) GetLeague(ctx context.Context, userID, leagueID uuid.UUID) (*LeagueDetail, error) {
	me, err := requireMember(ctx, s.leagues, leagueID, userID)
	if err != nil {
		return nil, err
	}
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	members, err := s.leagues.ListMembers(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return &LeagueDetail{League: league, Members: members, Me: me}, nil
}

// ListUserLeagues returns every league the user belongs to.
func (s *LeagueService) ListUserLeagues(ctx context.Context, userID uuid.UUID) ([]*domain.LeagueSummary, error) {
	return s.leagues.ListByUser(ctx, userID)
}

// ListLeagues pages through all leagues, optionally filtered by status.
func (s *LeagueService) ListLeagues(ctx context.Context, status string, limit, offset int) ([]*domain.League, int, error) {
	if status != "" && !domain.LeagueStatus(status).IsValid() {
		return nil, 0, domain.ErrInvalidLeagueStatus
	}
	return s.leagues.List(ctx, status, limit, offset)
}

// Leaderboard returns the ranked members, served from cache when possible.
func (s *LeagueService) Leaderboard(ctx context.Context, userID, leagueID uuid.UUID) ([]domain.LeaderboardEntry, error) {
	if _, err := requireMember(ctx, s.leagues, leagueID, userID); err != nil {
		return nil, err
	}
	if board, ok, err := s.board.Get(ctx, leagueID); err != nil {
		s.log.Warn("leaderboard cache read failed", zap.String("league_id", leagueID.String()), zap.Error(err))
	} else if ok {
		return board, nil
	}

	board, err := s.leagues.Leaderboard(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if err := s.board.Set(ctx, leagueID, board); err != nil {
		s.log.Warn("leaderboard cache write failed", zap.String("league_id", leagueID.String()), zap.Error(err))
	}
	return board, nil
}

// Balance returns the caller's balance in a league.
func (s *LeagueService) Balance(ctx context.Context, userID, leagueID uuid.UUID) (decimal.Decimal, error) {
	return s.leagues.GetBalance(ctx, leagueID, userID)
}

// Ledger returns the caller's ledger history in a league.
func (s *LeagueService) Ledger(ctx context.Context, userID, leagueID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error) {
	if _, err := requireMember(ctx, s.leagues, leagueID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.leagues.ListEntries(ctx, leagueID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("league_service.Ledger: %w", err)
	}
	return entries, nil
}
