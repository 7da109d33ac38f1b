package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LeagueAdminHandler serves /admin/leagues and /admin/tickets. Every action
// here bypasses league admin checks.
type LeagueAdminHandler struct {
	leagueSvc  *service.LeagueService
	ticketSvc  *service.TicketService
	leagueRepo *repository.LeagueRepository
	log        *zap.Logger
}

// NewLeagueAdminHandler creates a LeagueAdminHandler.
func NewLeagueAdminHandler(
	leagueSvc *service.LeagueService,
	ticketSvc *service.TicketService,
	leagueRepo *repository.LeagueRepository,
	log *zap.Logger,
) *LeagueAdminHandler {
	return &LeagueAdminHandler{leagueSvc: leagueSvc, ticketSvc: ticketSvc, leagueRepo: leagueRepo, log: log}
}

// List godoc
// GET /admin/leagues?status=active&page=1&limit=50
func (h *LeagueAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	leagues, total, err := h.leagueSvc.ListLeagues(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondList(c, leagues, total, page, limit)
}

// Detail godoc
// GET /admin/leagues/:id
func (h *LeagueAdminHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "league")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	league, err := h.leagueRepo.GetByID(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	board, err := h.leagueRepo.Leaderboard(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"league":      league,
		"leaderboard": board,
	})
}

// SetStatus godoc
// POST /admin/leagues/:id/status
// Body: {"status": "paused"}
func (h *LeagueAdminHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "league")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required,oneof=active paused completed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if err := h.leagueSvc.ForceStatus(c.Request.Context(), id, domain.LeagueStatus(body.Status)); err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("admin: league status forced",
		zap.String("admin", adminID(c)), zap.String("league_id", id.String()), zap.String("status", body.Status))
	respondSuccess(c, http.StatusOK, gin.H{"league_id": id, "status": body.Status})
}

// Tickets godoc
// GET /admin/leagues/:id/tickets?status=open
func (h *LeagueAdminHandler) Tickets(c *gin.Context) {
	id, ok := idParam(c, "league")
	if !ok {
		return
	}
	var status *domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.TicketStatus(raw)
		if !s.IsValid() {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid ticket status")
			return
		}
		status = &s
	}

	tickets, err := h.ticketSvc.ListByLeague(c.Request.Context(), id, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	now := time.Now()
	views := make([]domain.TicketView, len(tickets))
	for i, t := range tickets {
		views[i] = t.ToView(now)
	}
	respondSuccess(c, http.StatusOK, views)
}

// ForceCloseTicket godoc
// POST /admin/tickets/:id/close
func (h *LeagueAdminHandler) ForceCloseTicket(c *gin.Context) {
	id, ok := idParam(c, "ticket")
	if !ok {
		return
	}
	t, err := h.ticketSvc.ForceClose(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("admin: ticket force-closed",
		zap.String("admin", adminID(c)), zap.String("ticket_id", id.String()))
	respondSuccess(c, http.StatusOK, t.ToView(time.Now()))
}

func adminID(c *gin.Context) string {
	return middleware.GetUserID(c).String()
}
