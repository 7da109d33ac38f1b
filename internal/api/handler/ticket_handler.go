package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketHandler handles ticket authoring, lifecycle and resolution.
type TicketHandler struct {
	ticketSvc     *service.TicketService
	settlementSvc *service.SettlementService
}

// NewTicketHandler creates a TicketHandler.
func NewTicketHandler(ticketSvc *service.TicketService, settlementSvc *service.SettlementService) *TicketHandler {
	return &TicketHandler{ticketSvc: ticketSvc, settlementSvc: settlementSvc}
}

func respondTicket(c *gin.Context, status int, t *domain.Ticket) {
	respondSuccess(c, status, t.ToView(time.Now()))
}

// ListByLeague godoc
// GET /api/v1/leagues/:id/tickets?status=
func (h *TicketHandler) ListByLeague(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	status, ok := ticketStatusQuery(c)
	if !ok {
		return
	}
	tickets, err := h.ticketSvc.ListLeagueTickets(c.Request.Context(), middleware.GetUserID(c), leagueID, status)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	now := time.Now()
	views := make([]domain.TicketView, len(tickets))
	for i, t := range tickets {
		views[i] = t.ToView(now)
	}
	respondSuccess(c, http.StatusOK, views)
}

// CreateMoneyline godoc
// POST /api/v1/leagues/:id/tickets/moneyline
func (h *TicketHandler) CreateMoneyline(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.CreateMoneylineRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.ticketSvc.CreateMoneyline(c.Request.Context(), middleware.GetUserID(c), leagueID, req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondTicket(c, http.StatusCreated, t)
}

// CreateOverUnder godoc
// POST /api/v1/leagues/:id/tickets/over-under
func (h *TicketHandler) CreateOverUnder(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.CreateOverUnderRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.ticketSvc.CreateOverUnder(c.Request.Context(), middleware.GetUserID(c), leagueID, req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondTicket(c, http.StatusCreated, t)
}

// Get godoc
// GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.ticketSvc.GetTicket(c.Request.Context(), middleware.GetUserID(c), ticketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondTicket(c, http.StatusOK, t)
}

// AddOption godoc
// POST /api/v1/tickets/:id/options
func (h *TicketHandler) AddOption(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in domain.OptionInput
	if !bindJSON(c, &in) {
		return
	}
	h.respondMutation(c, func(actorID uuid.UUID) (*domain.Ticket, error) {
		return h.ticketSvc.AddOption(c.Request.Context(), actorID, ticketID, in)
	})
}

// RemoveOption godoc
// POST /api/v1/tickets/:id/options/remove
func (h *TicketHandler) RemoveOption(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		Option string `json:"option" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	h.respondMutation(c, func(actorID uuid.UUID) (*domain.Ticket, error) {
		return h.ticketSvc.RemoveOption(c.Request.Context(), actorID, ticketID, body.Option)
	})
}

// UpdateOdds godoc
// PATCH /api/v1/tickets/:id/options/odds
func (h *TicketHandler) UpdateOdds(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		Option string          `json:"option" binding:"required"`
		Odds   decimal.Decimal `json:"odds"   binding:"gt=0"`
	}
	if !bindJSON(c, &body) {
		return
	}
	h.respondMutation(c, func(actorID uuid.UUID) (*domain.Ticket, error) {
		return h.ticketSvc.UpdateOptionOdds(c.Request.Context(), actorID, ticketID, body.Option, body.Odds)
	})
}

// Close godoc
// POST /api/v1/tickets/:id/close
func (h *TicketHandler) Close(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	h.respondMutation(c, func(actorID uuid.UUID) (*domain.Ticket, error) {
		return h.ticketSvc.CloseTicket(c.Request.Context(), actorID, ticketID)
	})
}

func (h *TicketHandler) respondMutation(c *gin.Context, fn func(actorID uuid.UUID) (*domain.Ticket, error)) {
	t, err := fn(middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondTicket(c, http.StatusOK, t)
}

// Resolve godoc
// POST /api/v1/tickets/:id/resolve
func (h *TicketHandler) Resolve(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		WinningOption string `json:"winning_option" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	res, err := h.settlementSvc.ResolveTicket(c.Request.Context(), middleware.GetUserID(c), ticketID, body.WinningOption)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}
