package handler

import (
	"net/http"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/service"
	"github.com/gin-gonic/gin"
)

// UserHandler handles authentication and profile endpoints.
type UserHandler struct {
	authSvc   *service.AuthService
	leagueSvc *service.LeagueService
	betSvc    *service.BetService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authSvc *service.AuthService, leagueSvc *service.LeagueService, betSvc *service.BetService) *UserHandler {
	return &UserHandler{authSvc: authSvc, leagueSvc: leagueSvc, betSvc: betSvc}
}

// Register godoc
// POST /api/v1/auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, resp)
}

// Login godoc
// POST /api/v1/auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Refresh godoc
// POST /api/v1/auth/refresh
func (h *UserHandler) Refresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}

	resp, err := h.authSvc.RefreshTokens(c.Request.Context(), body.RefreshToken)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}

// Me godoc
// GET /api/v1/me
func (h *UserHandler) Me(c *gin.Context) {
	profile, err := h.authSvc.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, profile)
}

// MyLeagues godoc
// GET /api/v1/me/leagues
func (h *UserHandler) MyLeagues(c *gin.Context) {
	leagues, err := h.leagueSvc.ListUserLeagues(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, leagues)
}

// MyBets godoc
// GET /api/v1/me/bets?league_id=
func (h *UserHandler) MyBets(c *gin.Context) {
	leagueID, ok := optionalUUIDQuery(c, "league_id")
	if !ok {
		return
	}
	bets, err := h.betSvc.ListUserBets(c.Request.Context(), middleware.GetUserID(c), leagueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// MyStats godoc
// GET /api/v1/me/stats?league_id=
func (h *UserHandler) MyStats(c *gin.Context) {
	leagueID, ok := optionalUUIDQuery(c, "league_id")
	if !ok {
		return
	}
	stats, err := h.betSvc.UserStats(c.Request.Context(), middleware.GetUserID(c), leagueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}
