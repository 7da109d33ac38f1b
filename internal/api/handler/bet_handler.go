package handler

import (
	"net/http"
	"strconv"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BetHandler handles bet placement, cancellation and bet listings.
type BetHandler struct {
	betSvc *service.BetService
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(betSvc *service.BetService) *BetHandler {
	return &BetHandler{betSvc: betSvc}
}

// placeBetBody is the JSON body for POST /tickets/:id/bets.
type placeBetBody struct {
	SelectedOption string          `json:"selected_option" binding:"required,max=200"`
	Amount         decimal.Decimal `json:"amount"          binding:"gt=0"`
}

// PlaceBet godoc
// POST /api/v1/tickets/:id/bets
func (h *BetHandler) PlaceBet(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body placeBetBody
	if !bindJSON(c, &body) {
		return
	}

	bet, err := h.betSvc.PlaceBet(c.Request.Context(), domain.PlaceBetRequest{
		UserID:         middleware.GetUserID(c),
		TicketID:       ticketID,
		SelectedOption: body.SelectedOption,
		Amount:         body.Amount,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, bet)
}

// ListByTicket godoc
// GET /api/v1/tickets/:id/bets
func (h *BetHandler) ListByTicket(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	bets, err := h.betSvc.ListTicketBets(c.Request.Context(), middleware.GetUserID(c), ticketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// MyBetOnTicket godoc
// GET /api/v1/tickets/:id/my-bet
func (h *BetHandler) MyBetOnTicket(c *gin.Context) {
	ticketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	bet, err := h.betSvc.MyBetOnTicket(c.Request.Context(), middleware.GetUserID(c), ticketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// ListByLeague godoc
// GET /api/v1/leagues/:id/bets?status=
func (h *BetHandler) ListByLeague(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	status, ok := betStatusQuery(c)
	if !ok {
		return
	}
	bets, err := h.betSvc.ListLeagueBets(c.Request.Context(), middleware.GetUserID(c), leagueID, status)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// RecentByLeague godoc
// GET /api/v1/leagues/:id/bets/recent?limit=
func (h *BetHandler) RecentByLeague(c *gin.Context) {
	leagueID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	bets, err := h.betSvc.RecentLeagueBets(c.Request.Context(), middleware.GetUserID(c), leagueID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// Get godoc
// GET /api/v1/bets/:id
func (h *BetHandler) Get(c *gin.Context) {
	betID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	bet, err := h.betSvc.GetBet(c.Request.Context(), middleware.GetUserID(c), betID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// Cancel godoc
// DELETE /api/v1/bets/:id
func (h *BetHandler) Cancel(c *gin.Context) {
	betID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	bet, err := h.betSvc.CancelBet(c.Request.Context(), middleware.GetUserID(c), betID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}
