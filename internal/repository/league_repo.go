package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrInviteCodeTaken is returned by Create when the generated invite code
// collides with an existing league. Callers regenerate and retry.
var ErrInviteCodeTaken = errors.New("invite code already in use")

const leagueColumns = `id, name, description, creator_id, starting_balance, status, invite_code, end_date, created_at, updated_at`

const memberSelect = `
	SELECT m.league_id, m.user_id, u.username, m.balance, m.is_admin, m.join_seq, m.joined_at
	FROM league_members m
	JOIN users u ON u.id = m.user_id`

// LeagueRepository handles leagues, their member ledger and the ledger audit log.
type LeagueRepository struct {
	db *sqlx.DB
}

// NewLeagueRepository creates a new LeagueRepository.
func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

// ──────────────────────────────────────────────────────────────────────────────
// Leagues
// ──────────────────────────────────────────────────────────────────────────────

// Create inserts a new league inside an existing transaction.
func (r *LeagueRepository) Create(ctx context.Context, tx *sqlx.Tx, l *domain.League) error {
	query := `
		INSERT INTO leagues
			(id, name, description, creator_id, starting_balance, status, invite_code, end_date, created_at, updated_at)
		VALUES
			(:id, :name, :description, :creator_id, :starting_balance, :status, :invite_code, :end_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
		if isPgUniqueViolation(err, "leagues_invite_code_key") {
			return ErrInviteCodeTaken
		}
		return fmt.Errorf("league_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a league by primary key.
func (r *LeagueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.League, error) {
	var l domain.League
	err := r.db.GetContext(ctx, &l, `SELECT `+leagueColumns+` FROM leagues WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeagueNotFound
		}
		return nil, fmt.Errorf("league_repo.GetByID: %w", err)
	}
	return &l, nil
}

// GetByInviteCode fetches a league by its (already normalised) invite code.
func (r *LeagueRepository) GetByInviteCode(ctx context.Context, code string) (*domain.League, error) {
	var l domain.League
	err := r.db.GetContext(ctx, &l, `SELECT `+leagueColumns+` FROM leagues WHERE invite_code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeagueNotFound
		}
		return nil, fmt.Errorf("league_repo.GetByInviteCode: %w", err)
	}
	return &l, nil
}

// Update persists the mutable league settings.
func (r *LeagueRepository) Update(ctx context.Context, l *domain.League) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE leagues
		SET name = :name, description = :description, starting_balance = :starting_balance,
		    status = :status, end_date = :end_date, updated_at = :updated_at
		WHERE id = :id`, l)
	if err != nil {
		return fmt.Errorf("league_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrLeagueNotFound
	}
	return nil
}

// SetStatus changes a league's status.
func (r *LeagueRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.LeagueStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leagues SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("league_repo.SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrLeagueNotFound
	}
	return nil
}

// CompleteExpired marks every active league whose end date has passed as
// completed and returns their ids.
func (r *LeagueRepository) CompleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE leagues SET status = 'completed', updated_at = $1
		WHERE status = 'active' AND end_date IS NOT NULL AND end_date <= $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("league_repo.CompleteExpired: %w", err)
	}
	return ids, nil
}

// ListByUser returns every league the user belongs to, newest membership first.
func (r *LeagueRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LeagueSummary, error) {
	var out []*domain.LeagueSummary
	err := r.db.SelectContext(ctx, &out, `
		SELECT l.id, l.name, l.description, l.creator_id, l.starting_balance, l.status,
		       l.invite_code, l.end_date, l.created_at, l.updated_at,
		       (SELECT COUNT(*) FROM league_members c WHERE c.league_id = l.id) AS member_count,
		       m.balance AS my_balance, m.is_admin
		FROM leagues l
		JOIN league_members m ON m.league_id = l.id
		WHERE m.user_id = $1
		ORDER BY m.joined_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("league_repo.ListByUser: %w", err)
	}
	return out, nil
}

// List returns leagues for the back-office, optionally filtered by status.
// Returns (leagues, totalCount, error).
func (r *LeagueRepository) List(ctx context.Context, status string, limit, offset int) ([]*domain.League, int, error) {
	var (
		leagues []*domain.League
		total   int
	)
	where := ""
	args := []any{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM leagues `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("league_repo.List count: %w", err)
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM leagues %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		leagueColumns, where, len(args)-1, len(args))
	if err := r.db.SelectContext(ctx, &leagues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("league_repo.List select: %w", err)
	}
	return leagues, total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Members
// ──────────────────────────────────────────────────────────────────────────────

// AddMember inserts a membership row and fills in JoinSeq/JoinedAt.
// Returns ErrAlreadyMember when the user already belongs to the league.
func (r *LeagueRepository) AddMember(ctx context.Context, tx *sqlx.Tx, m *domain.Member) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO league_members (league_id, user_id, balance, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING join_seq, joined_at`,
		m.LeagueID, m.UserID, m.Balance, m.IsAdmin)
	if err := row.Scan(&m.JoinSeq, &m.JoinedAt); err != nil {
		if isPgUniqueViolation(err, "league_members_pkey") {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("league_repo.AddMember: %w", err)
	}
	return nil
}

// GetMember returns the membership row, or ErrNotAMember.
func (r *LeagueRepository) GetMember(ctx context.Context, leagueID, userID uuid.UUID) (*domain.Member, error) {
	var m domain.Member
	err := r.db.GetContext(ctx, &m, memberSelect+` WHERE m.league_id = $1 AND m.user_id = $2`, leagueID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotAMember
		}
		return nil, fmt.Errorf("league_repo.GetMember: %w", err)
	}
	return &m, nil
}

// LockMember reads the membership row with FOR UPDATE. Concurrent debits and
// credits for the same member serialise on this lock until tx ends.
func (r *LeagueRepository) LockMember(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID) (*domain.Member, error) {
	var m domain.Member
	err := tx.GetContext(ctx, &m,
		memberSelect+` WHERE m.league_id = $1 AND m.user_id = $2 FOR UPDATE OF m`, leagueID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotAMember
		}
		return nil, fmt.Errorf("league_repo.LockMember: %w", err)
	}
	return &m, nil
}

// ListMembers returns every member in join order.
func (r *LeagueRepository) ListMembers(ctx context.Context, leagueID uuid.UUID) ([]domain.Member, error) {
	var members []domain.Member
	if err := r.db.SelectContext(ctx, &members,
		memberSelect+` WHERE m.league_id = $1 ORDER BY m.join_seq ASC`, leagueID); err != nil {
		return nil, fmt.Errorf("league_repo.ListMembers: %w", err)
	}
	return members, nil
}

// RemoveMember deletes a membership row inside tx.
func (r *LeagueRepository) RemoveMember(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM league_members WHERE league_id = $1 AND user_id = $2`, leagueID, userID)
	if err != nil {
		return fmt.Errorf("league_repo.RemoveMember: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

// SetAdmin grants or revokes the league admin flag.
func (r *LeagueRepository) SetAdmin(ctx context.Context, leagueID, userID uuid.UUID, admin bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE league_members SET is_admin = $1 WHERE league_id = $2 AND user_id = $3`,
		admin, leagueID, userID)
	if err != nil {
		return fmt.Errorf("league_repo.SetAdmin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotAMember
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Balance ledger
// ──────────────────────────────────────────────────────────────────────────────

// GetBalance returns the member's current balance.
func (r *LeagueRepository) GetBalance(ctx context.Context, leagueID, userID uuid.UUID) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := r.db.GetContext(ctx, &bal,
		`SELECT balance FROM league_members WHERE league_id = $1 AND user_id = $2`, leagueID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrNotAMember
		}
		return decimal.Zero, fmt.Errorf("league_repo.GetBalance: %w", err)
	}
	return bal, nil
}

// Debit locks the member row, subtracts amount and persists the new balance.
// Returns the member state before and after the debit. amount must be
// positive and not exceed the balance (ErrInvalidStake / ErrInsufficientFunds).
func (r *LeagueRepository) Debit(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID, amount decimal.Decimal) (before, after domain.Member, err error) {
	m, err := r.LockMember(ctx, tx, leagueID, userID)
	if err != nil {
		return before, after, err
	}
	before = *m
	after, err = before.Debit(amount)
	if err != nil {
		return before, before, err
	}
	if err = r.saveBalance(ctx, tx, after); err != nil {
		return before, before, fmt.Errorf("league_repo.Debit: %w", err)
	}
	return before, after, nil
}

// Credit locks the member row, adds amount and persists the new balance.
// amount may be zero but not negative.
func (r *LeagueRepository) Credit(ctx context.Context, tx *sqlx.Tx, leagueID, userID uuid.UUID, amount decimal.Decimal) (before, after domain.Member, err error) {
	m, err := r.LockMember(ctx, tx, leagueID, userID)
	if err != nil {
		return before, after, err
	}
	before = *m
	after, err = before.Credit(amount)
	if err != nil {
		return before, before, err
	}
	if err = r.saveBalance(ctx, tx, after); err != nil {
		return before, before, fmt.Errorf("league_repo.Credit: %w", err)
	}
	return before, after, nil
}

func (r *LeagueRepository) saveBalance(ctx context.Context, tx *sqlx.Tx, m domain.Member) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE league_members SET balance = $1 WHERE league_id = $2 AND user_id = $3`,
		m.Balance, m.LeagueID, m.UserID)
	return err
}

// Leaderboard returns members ranked by balance descending, ties by join order.
func (r *LeagueRepository) Leaderboard(ctx context.Context, leagueID uuid.UUID) ([]domain.LeaderboardEntry, error) {
	var members []domain.Member
	if err := r.db.SelectContext(ctx, &members,
		memberSelect+` WHERE m.league_id = $1 ORDER BY m.balance DESC, m.join_seq ASC`, leagueID); err != nil {
		return nil, fmt.Errorf("league_repo.Leaderboard: %w", err)
	}
	return domain.SortLeaderboard(members), nil
}

// LogEntry inserts a ledger audit record inside a transaction.
func (r *LeagueRepository) LogEntry(ctx context.Context, tx *sqlx.Tx, e *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries
			(id, league_id, user_id, kind, amount, balance_before, balance_after, ref_id, description, created_at)
		VALUES
			(:id, :league_id, :user_id, :kind, :amount, :balance_before, :balance_after, :ref_id, :description, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("league_repo.LogEntry: %w", err)
	}
	return nil
}

// ListEntries returns a member's ledger history, newest first.
func (r *LeagueRepository) ListEntries(ctx context.Context, leagueID, userID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, league_id, user_id, kind, amount, balance_before, balance_after, ref_id, description, created_at
		FROM ledger_entries
		WHERE league_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		leagueID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("league_repo.ListEntries: %w", err)
	}
	return entries, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Dashboard
// ──────────────────────────────────────────────────────────────────────────────

// CountByStatus returns the number of leagues per status.
func (r *LeagueRepository) CountByStatus(ctx context.Context) (map[domain.LeagueStatus]int, error) {
	var rows []struct {
		Status domain.LeagueStatus `db:"status"`
		N      int                 `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM leagues GROUP BY status`); err != nil {
		return nil, fmt.Errorf("league_repo.CountByStatus: %w", err)
	}
	out := make(map[domain.LeagueStatus]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
