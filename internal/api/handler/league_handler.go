package handler

import (
	"context"
	"net/http"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeagueHandler handles league, membership and ledger endpoints.
type LeagueHandler struct {
	leagueSvc *service.LeagueService
}

// NewLeagueHandler creates a LeagueHandler.
func NewLeagueHandler(leagueSvc *service.LeagueService) *LeagueHandler {
	return &LeagueHandler{leagueSvc: leagueSvc}
}

// Create godoc
// POST /api/v1/leagues
func (h *LeagueHandler) Create(c *gin.Context) {
	var req service.CreateLeagueRequest
	if !bindJSON(c, &req) {
		return
	}
	league, err := h.leagueSvc.CreateLeague(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, league)
}

// Join godoc
// POST /api/v1/leagues/join
func (h *LeagueHandler) Join(c *gin.Context) {
	var body struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	league, err := h.leagueSvc.JoinByInviteCode(c.Request.Context(), middleware.GetUserID(c), body.InviteCode)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, league)
}

// Get godoc
// GET /api/v1/leagues/:id
func (h *LeagueHandler) Get(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.leagueSvc.GetLeague(c.Request.Context(), middleware.GetUserID(c), leagueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, detail)
}

// Update godoc
// PATCH /api/v1/leagues/:id
func (h *LeagueHandler) Update(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateLeagueRequest
	if !bindJSON(c, &req) {
		return
	}
	league, err := h.leagueSvc.UpdateSettings(c.Request.Context(), middleware.GetUserID(c), leagueID, req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, league)
}

// SetStatus godoc
// PUT /api/v1/leagues/:id/status
func (h *LeagueHandler) SetStatus(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required,oneof=active paused completed"`
	}
	if !bindJSON(c, &body) {
		return
	}
	err := h.leagueSvc.SetStatus(c.Request.Context(), middleware.GetUserID(c), leagueID, domain.LeagueStatus(body.Status))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": body.Status})
}

// Leave godoc
// POST /api/v1/leagues/:id/leave
func (h *LeagueHandler) Leave(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.leagueSvc.Leave(c.Request.Context(), middleware.GetUserID(c), leagueID); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"left": true})
}

// RemoveMember godoc
// DELETE /api/v1/leagues/:id/members/:userId
func (h *LeagueHandler) RemoveMember(c *gin.Context) {
	h.memberAction(c, h.leagueSvc.RemoveMember)
}

// PromoteAdmin godoc
// POST /api/v1/leagues/:id/members/:userId/promote
func (h *LeagueHandler) PromoteAdmin(c *gin.Context) {
	h.memberAction(c, h.leagueSvc.PromoteAdmin)
}

// DemoteAdmin godoc
// POST /api/v1/leagues/:id/members/:userId/demote
func (h *LeagueHandler) DemoteAdmin(c *gin.Context) {
	h.memberAction(c, h.leagueSvc.DemoteAdmin)
}

func (h *LeagueHandler) memberAction(c *gin.Context, action func(ctx context.Context, actorID, leagueID, userID uuid.UUID) error) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), middleware.GetUserID(c), leagueID, userID); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"league_id": leagueID, "user_id": userID})
}

// Leaderboard godoc
// GET /api/v1/leagues/:id/leaderboard
func (h *LeagueHandler) Leaderboard(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	board, err := h.leagueSvc.Leaderboard(c.Request.Context(), middleware.GetUserID(c), leagueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, board)
}

// Balance godoc
// GET /api/v1/leagues/:id/balance
func (h *LeagueHandler) Balance(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	balance, err := h.leagueSvc.Balance(c.Request.Context(), middleware.GetUserID(c), leagueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"league_id": leagueID, "balance": balance})
}

// Ledger godoc
// GET /api/v1/leagues/:id/ledger?page=&limit=
func (h *LeagueHandler) Ledger(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	entries, err := h.leagueSvc.Ledger(c.Request.Context(), middleware.GetUserID(c), leagueID, limit, (page-1)*limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, entries)
}
