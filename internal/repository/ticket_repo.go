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
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const ticketColumns = `id, league_id, title, description, ticket_type, target_value, status,
	winning_option, created_by, closes_at, created_at, closed_at, resolved_at`

// ticketRow is the storage shape of a ticket without its options.
type ticketRow struct {
	ID            uuid.UUID        `db:"id"`
	LeagueID      uuid.UUID        `db:"league_id"`
	Title         string           `db:"title"`
	Description   string           `db:"description"`
	Type          string           `db:"ticket_type"`
	TargetValue   *decimal.Decimal `db:"target_value"`
	Status        string           `db:"status"`
	WinningOption *string          `db:"winning_option"`
	CreatedBy     uuid.UUID        `db:"created_by"`
	ClosesAt      *time.Time       `db:"closes_at"`
	CreatedAt     time.Time        `db:"created_at"`
	ClosedAt      *time.Time       `db:"closed_at"`
	ResolvedAt    *time.Time       `db:"resolved_at"`
}

type optionRow struct {
	TicketID uuid.UUID       `db:"ticket_id"`
	Position int             `db:"position"`
	Text     string          `db:"option_text"`
	Odds     decimal.Decimal `db:"odds"`
}

// toDomain maps a stored row plus its options to a Ticket. Rows carrying an
// unknown status or type, or a resolved ticket without a winner, are rejected.
func (row ticketRow) toDomain(opts []optionRow) (*domain.Ticket, error) {
	status := domain.TicketStatus(row.Status)
	typ := domain.TicketType(row.Type)
	if !status.IsValid() {
		return nil, fmt.Errorf("ticket %s: unknown status %q", row.ID, row.Status)
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("ticket %s: unknown type %q", row.ID, row.Type)
	}
	if status == domain.TicketResolved && row.WinningOption == nil {
		return nil, fmt.Errorf("ticket %s: resolved without winning option", row.ID)
	}
	t := &domain.Ticket{
		ID:            row.ID,
		LeagueID:      row.LeagueID,
		Title:         row.Title,
		Description:   row.Description,
		Type:          typ,
		TargetValue:   row.TargetValue,
		Status:        status,
		WinningOption: row.WinningOption,
		CreatedBy:     row.CreatedBy,
		ClosesAt:      row.ClosesAt,
		CreatedAt:     row.CreatedAt,
		ClosedAt:      row.ClosedAt,
		ResolvedAt:    row.ResolvedAt,
		Options:       make([]domain.Option, 0, len(opts)),
	}
	for _, o := range opts {
		t.Options = append(t.Options, domain.Option{Text: o.Text, Odds: o.Odds})
	}
	return t, nil
}

func fromDomain(t *domain.Ticket) ticketRow {
	return ticketRow{
		ID:            t.ID,
		LeagueID:      t.LeagueID,
		Title:         t.Title,
		Description:   t.Description,
		Type:          string(t.Type),
		TargetValue:   t.TargetValue,
		Status:        string(t.Status),
		WinningOption: t.WinningOption,
		CreatedBy:     t.CreatedBy,
		ClosesAt:      t.ClosesAt,
		CreatedAt:     t.CreatedAt,
		ClosedAt:      t.ClosedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

// TicketRef identifies a ticket together with its league.
type TicketRef struct {
	ID       uuid.UUID `db:"id"`
	LeagueID uuid.UUID `db:"league_id"`
}

// TicketRepository handles tickets and their options.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts a ticket and its options inside an existing transaction.
func (r *TicketRepository) Create(ctx context.Context, tx *sqlx.Tx, t *domain.Ticket) error {
	query := `
		INSERT INTO tickets
			(id, league_id, title, description, ticket_type, target_value, status,
			 winning_option, created_by, closes_at, created_at, closed_at, resolved_at)
		VALUES
			(:id, :league_id, :title, :description, :ticket_type, :target_value, :status,
			 :winning_option, :created_by, :closes_at, :created_at, :closed_at, :resolved_at)`
	if _, err := tx.NamedExecContext(ctx, query, fromDomain(t)); err != nil {
		return fmt.Errorf("ticket_repo.Create: %w", err)
	}
	if err := r.insertOptions(ctx, tx, t); err != nil {
		return fmt.Errorf("ticket_repo.Create: %w", err)
	}
	return nil
}

func (r *TicketRepository) insertOptions(ctx context.Context, tx *sqlx.Tx, t *domain.Ticket) error {
	for i, o := range t.Options {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ticket_options (ticket_id, position, option_text, odds) VALUES ($1, $2, $3, $4)`,
			t.ID, i, o.Text, o.Odds); err != nil {
			return fmt.Errorf("insert option %q: %w", o.Text, err)
		}
	}
	return nil
}

// GetByID fetches a ticket with its options.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return r.get(ctx, r.db, "GetByID", "", id)
}

// GetForUpdate fetches a ticket and locks its row FOR UPDATE. Status
// transitions on the same ticket serialise on this lock.
func (r *TicketRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Ticket, error) {
	return r.get(ctx, tx, "GetForUpdate", " FOR UPDATE", id)
}

// GetForShare fetches a ticket and takes a FOR SHARE lock, which blocks a
// concurrent GetForUpdate (close/resolve) until tx ends.
func (r *TicketRepository) GetForShare(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Ticket, error) {
	return r.get(ctx, tx, "GetForShare", " FOR SHARE", id)
}

func (r *TicketRepository) get(ctx context.Context, q sqlx.QueryerContext, op, lock string, id uuid.UUID) (*domain.Ticket, error) {
	var row ticketRow
	if err := sqlx.GetContext(ctx, q, &row, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`+lock, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket_repo.%s: %w", op, err)
	}
	var opts []optionRow
	if err := sqlx.SelectContext(ctx, q, &opts, `
		SELECT ticket_id, position, option_text, odds
		FROM ticket_options WHERE ticket_id = $1 ORDER BY position ASC`, id); err != nil {
		return nil, fmt.Errorf("ticket_repo.%s options: %w", op, err)
	}
	t, err := row.toDomain(opts)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.%s: %w", op, err)
	}
	return t, nil
}

// Update persists the ticket's state and replaces its option list.
func (r *TicketRepository) Update(ctx context.Context, tx *sqlx.Tx, t *domain.Ticket) error {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE tickets
		SET title = :title, description = :description, status = :status,
		    winning_option = :winning_option, closes_at = :closes_at,
		    closed_at = :closed_at, resolved_at = :resolved_at
		WHERE id = :id`, fromDomain(t))
	if err != nil {
		return fmt.Errorf("ticket_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTicketNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_options WHERE ticket_id = $1`, t.ID); err != nil {
		return fmt.Errorf("ticket_repo.Update options: %w", err)
	}
	if err := r.insertOptions(ctx, tx, t); err != nil {
		return fmt.Errorf("ticket_repo.Update: %w", err)
	}
	return nil
}

// ListByLeague returns a league's tickets newest first, optionally filtered by status.
func (r *TicketRepository) ListByLeague(ctx context.Context, leagueID uuid.UUID, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	var rows []ticketRow
	var err error
	if status != nil {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT `+ticketColumns+` FROM tickets WHERE league_id = $1 AND status = $2 ORDER BY created_at DESC`,
			leagueID, string(*status))
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT `+ticketColumns+` FROM tickets WHERE league_id = $1 ORDER BY created_at DESC`, leagueID)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.ListByLeague: %w", err)
	}
	return r.attachOptions(ctx, rows)
}

func (r *TicketRepository) attachOptions(ctx context.Context, rows []ticketRow) ([]*domain.Ticket, error) {
	if len(rows) == 0 {
		return []*domain.Ticket{}, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID.String()
	}
	var opts []optionRow
	if err := r.db.SelectContext(ctx, &opts, `
		SELECT ticket_id, position, option_text, odds
		FROM ticket_options WHERE ticket_id = ANY($1::uuid[])
		ORDER BY ticket_id, position ASC`, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("ticket_repo.attachOptions: %w", err)
	}
	byTicket := make(map[uuid.UUID][]optionRow, len(rows))
	for _, o := range opts {
		byTicket[o.TicketID] = append(byTicket[o.TicketID], o)
	}

	out := make([]*domain.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain(byTicket[row.ID])
		if err != nil {
			return nil, fmt.Errorf("ticket_repo.attachOptions: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// CloseExpired flips every open ticket whose deadline has passed to closed.
func (r *TicketRepository) CloseExpired(ctx context.Context, now time.Time) ([]TicketRef, error) {
	var refs []TicketRef
	err := r.db.SelectContext(ctx, &refs, `
		UPDATE tickets SET status = 'closed', closed_at = $1
		WHERE status = 'open' AND closes_at IS NOT NULL AND closes_at <= $1
		RETURNING id, league_id`, now)
	if err != nil {
		return nil, fmt.Errorf("ticket_repo.CloseExpired: %w", err)
	}
	return refs, nil
}

// CountOpen returns the number of tickets with stored status open.
func (r *TicketRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tickets WHERE status = 'open'`); err != nil {
		return 0, fmt.Errorf("ticket_repo.CountOpen: %w", err)
	}
	return n, nil
}
