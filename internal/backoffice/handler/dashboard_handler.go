package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/ws"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	userRepo   *repository.UserRepository
	leagueRepo *repository.LeagueRepository
	ticketRepo *repository.TicketRepository
	betRepo    *repository.BetRepository
	hub        *ws.Hub
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	userRepo *repository.UserRepository,
	leagueRepo *repository.LeagueRepository,
	ticketRepo *repository.TicketRepository,
	betRepo *repository.BetRepository,
	hub *ws.Hub,
) *DashboardHandler {
	return &DashboardHandler{
		userRepo:   userRepo,
		leagueRepo: leagueRepo,
		ticketRepo: ticketRepo,
		betRepo:    betRepo,
		hub:        hub,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.userRepo.Count(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	byStatus, err := h.leagueRepo.CountByStatus(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	openTickets, err := h.ticketRepo.CountOpen(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pendingBets, staked, err := h.betRepo.Totals(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// ── WS connections ────────────────────────────────────────────────────────
	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp": time.Now().UTC(),
		"users":     users,
		"leagues": gin.H{
			"active":    byStatus[domain.LeagueActive],
			"paused":    byStatus[domain.LeaguePaused],
			"completed": byStatus[domain.LeagueCompleted],
		},
		"open_tickets":   openTickets,
		"pending_bets":   pendingBets,
		"total_staked":   staked,
		"ws_connections": wsConnections,
	})
}
