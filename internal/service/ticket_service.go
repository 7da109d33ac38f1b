package service

import (
	"context"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ──────────────────────────────────────────────────────────────────────────────
// Request types
// ──────────────────────────────────────────────────────────────────────────────

// CreateMoneylineRequest holds the admin input for a moneyline ticket.
type CreateMoneylineRequest struct {
	Title       string               `json:"title"       binding:"required,min=1,max=200"`
	Description string               `json:"description" binding:"max=1000"`
	Options     []domain.OptionInput `json:"options"     binding:"required,dive"`
	ClosesAt    *time.Time           `json:"closes_at"`
}

// CreateOverUnderRequest holds the admin input for an over/under ticket.
type CreateOverUnderRequest struct {
	Title       string          `json:"title"       binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=1000"`
	Target      decimal.Decimal `json:"target_value"`
	OverOdds    decimal.Decimal `json:"over_odds"`
	UnderOdds   decimal.Decimal `json:"under_odds"`
	ClosesAt    *time.Time      `json:"closes_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// TicketService
// ──────────────────────────────────────────────────────────────────────────────

// TicketService manages the ticket lifecycle up to resolution. Settlement
// lives in SettlementService.
type TicketService struct {
	postCommit
	db      *sqlx.DB
	tickets *repository.TicketRepository
	leagues *repository.LeagueRepository
	now     func() time.Time
}

// NewTicketService creates a TicketService.
func NewTicketService(
	db *sqlx.DB,
	tickets *repository.TicketRepository,
	leagues *repository.LeagueRepository,
	log *zap.Logger,
) *TicketService {
	return &TicketService{
		postCommit: newPostCommit(log, leagues),
		db:         db,
		tickets:    tickets,
		leagues:    leagues,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateMoneyline posts a moneyline ticket in an active league.
func (s *TicketService) CreateMoneyline(ctx context.Context, actorID, leagueID uuid.UUID, req CreateMoneylineRequest) (*domain.Ticket, error) {
	if err := s.canAuthor(ctx, actorID, leagueID); err != nil {
		return nil, err
	}
	t, err := domain.NewMoneylineTicket(leagueID, actorID, req.Title, req.Description, req.Options, req.ClosesAt, s.now())
	if err != nil {
		return nil, err
	}
	return s.create(ctx, t)
}

// CreateOverUnder posts an over/under ticket in an active league.
func (s *TicketService) CreateOverUnder(ctx context.Context, actorID, leagueID uuid.UUID, req CreateOverUnderRequest) (*domain.Ticket, error) {
	if err := s.canAuthor(ctx, actorID, leagueID); err != nil {
		return nil, err
	}
	t, err := domain.NewOverUnderTicket(leagueID, actorID, req.Title, req.Description,
		req.Target, req.OverOdds, req.UnderOdds, req.ClosesAt, s.now())
	if err != nil {
		return nil, err
	}
	return s.create(ctx, t)
}

func (s *TicketService) canAuthor(ctx context.Context, actorID, leagueID uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.leagues, leagueID, actorID); err != nil {
		return err
	}
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return err
	}
	if !league.IsActive() {
		return domain.ErrLeagueNotActive
	}
	return nil
}

func (s *TicketService) create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	err := inTx(ctx, s.db, "ticket_service.create", func(tx *sqlx.Tx) error {
		return s.tickets.Create(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket created",
		zap.String("ticket_id", t.ID.String()),
		zap.String("league_id", t.LeagueID.String()),
		zap.String("type", string(t.Type)))
	s.afterCommit(t.LeagueID, false, events.New(events.TicketCreated, t.LeagueID, t.ToView(s.now())))
	return t, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutations under the ticket row lock
// ──────────────────────────────────────────────────────────────────────────────

// mutate locks the ticket, checks the actor administers its league, applies
// fn and persists the result.
func (s *TicketService) mutate(ctx context.Context, op string, actorID *uuid.UUID, ticketID uuid.UUID,
	fn func(t *domain.Ticket) error,
) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := inTx(ctx, s.db, op, func(tx *sqlx.Tx) error {
		t, err := s.tickets.GetForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if actorID != nil {
			if _, err := requireAdmin(ctx, s.leagues, t.LeagueID, *actorID); err != nil {
				return err
			}
		}
		if err := fn(t); err != nil {
			return err
		}
		ticket = t
		return s.tickets.Update(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// AddOption appends an option to an open ticket.
func (s *TicketService) AddOption(ctx context.Context, actorID, ticketID uuid.UUID, in domain.OptionInput) (*domain.Ticket, error) {
	t, err := s.mutate(ctx, "ticket_service.AddOption", &actorID, ticketID, func(t *domain.Ticket) error {
		return t.AddOption(in.Text, in.Odds)
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(t.LeagueID, false, events.New(events.TicketUpdated, t.LeagueID, t.ToView(s.now())))
	return t, nil
}

// RemoveOption removes an option from an open ticket.
func (s *TicketService) RemoveOption(ctx context.Context, actorID, ticketID uuid.UUID, text string) (*domain.Ticket, error) {
	t, err := s.mutate(ctx, "ticket_service.RemoveOption", &actorID, ticketID, func(t *domain.Ticket) error {
		return t.RemoveOption(text)
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(t.LeagueID, false, events.New(events.TicketUpdated, t.LeagueID, t.ToView(s.now())))
	return t, nil
}

// UpdateOptionOdds re-prices an option. Existing bets keep their odds.
func (s *TicketService) UpdateOptionOdds(ctx context.Context, actorID, ticketID uuid.UUID, text string, odds decimal.Decimal) (*domain.Ticket, error) {
	t, err := s.mutate(ctx, "ticket_service.UpdateOptionOdds", &actorID, ticketID, func(t *domain.Ticket) error {
		return t.UpdateOptionOdds(text, odds)
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(t.LeagueID, false, events.New(events.TicketUpdated, t.LeagueID, t.ToView(s.now())))
	return t, nil
}

// CloseTicket stops betting on an open ticket.
func (s *TicketService) CloseTicket(ctx context.Context, actorID, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.close(ctx, &actorID, ticketID)
}

// ForceClose closes a ticket without a league admin check. Back-office only.
func (s *TicketService) ForceClose(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	return s.close(ctx, nil, ticketID)
}

func (s *TicketService) close(ctx context.Context, actorID *uuid.UUID, ticketID uuid.UUID) (*domain.Ticket, error) {
	t, err := s.mutate(ctx, "ticket_service.CloseTicket", actorID, ticketID, func(t *domain.Ticket) error {
		return t.Close(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("ticket closed", zap.String("ticket_id", t.ID.String()))
	s.afterCommit(t.LeagueID, false, events.New(events.TicketClosed, t.LeagueID, t.ToView(s.now())))
	return t, nil
}

// CloseExpired flips open tickets past their deadline to closed and returns
// how many were closed.
func (s *TicketService) CloseExpired(ctx context.Context) (int, error) {
	refs, err := s.tickets.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, ref := range refs {
		s.afterCommit(ref.LeagueID, false, events.New(events.TicketClosed, ref.LeagueID,
			map[string]string{"ticket_id": ref.ID.String()}))
	}
	return len(refs), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetTicket returns a ticket to a member of its league.
func (s *TicketService) GetTicket(ctx context.Context, userID, ticketID uuid.UUID) (*domain.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.leagues, t.LeagueID, userID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListLeagueTickets returns a league's tickets newest first. Members only.
func (s *TicketService) ListLeagueTickets(ctx context.Context, userID, leagueID uuid.UUID, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	if _, err := requireMember(ctx, s.leagues, leagueID, userID); err != nil {
		return nil, err
	}
	return s.ListByLeague(ctx, leagueID, status)
}

// ListByLeague returns a league's tickets without a membership check.
func (s *TicketService) ListByLeague(ctx context.Context, leagueID uuid.UUID, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	return s.tickets.ListByLeague(ctx, leagueID, status)
}
