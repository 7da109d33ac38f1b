package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Domain error mapping
// ──────────────────────────────────────────────────────────────────────────────

// errorCodes gives the stable machine-readable code for each sentinel.
var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrUserNotFound, "ERR_USER_NOT_FOUND"},
	{domain.ErrLeagueNotFound, "ERR_LEAGUE_NOT_FOUND"},
	{domain.ErrTicketNotFound, "ERR_TICKET_NOT_FOUND"},
	{domain.ErrBetNotFound, "ERR_BET_NOT_FOUND"},
	{domain.ErrNotAMember, "ERR_NOT_A_MEMBER"},
	{domain.ErrAccessDenied, "ERR_ACCESS_DENIED"},
	{domain.ErrAlreadyMember, "ERR_ALREADY_MEMBER"},
	{domain.ErrLeagueNotActive, "ERR_LEAGUE_NOT_ACTIVE"},
	{domain.ErrCreatorCannotLeave, "ERR_CREATOR_CANNOT_LEAVE"},
	{domain.ErrCannotDemoteCreator, "ERR_CANNOT_DEMOTE_CREATOR"},
	{domain.ErrMemberHasPendingBets, "ERR_PENDING_BETS"},
	{domain.ErrInvalidTransition, "ERR_INVALID_TRANSITION"},
	{domain.ErrBettingClosed, "ERR_BETTING_CLOSED"},
	{domain.ErrDuplicateBet, "ERR_DUPLICATE_BET"},
	{domain.ErrDuplicateOption, "ERR_DUPLICATE_OPTION"},
	{domain.ErrBetNotCancellable, "ERR_BET_NOT_CANCELLABLE"},
	{domain.ErrInsufficientFunds, "ERR_INSUFFICIENT_FUNDS"},
	{domain.ErrEmailTaken, "ERR_EMAIL_TAKEN"},
	{domain.ErrUsernameTaken, "ERR_USERNAME_TAKEN"},
	{domain.ErrInvalidCredentials, "ERR_INVALID_CREDENTIALS"},
	{domain.ErrUserInactive, "ERR_ACCOUNT_DISABLED"},
	{domain.ErrTokenExpired, "ERR_TOKEN_EXPIRED"},
	{domain.ErrTokenInvalid, "ERR_INVALID_TOKEN"},
}

// respondDomainError translates a service error into the error envelope.
// Anything unrecognised becomes a 500 and is attached to the gin context so
// the request logger records it.
func respondDomainError(c *gin.Context, err error) {
	code := "ERR_VALIDATION"
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			code = e.code
			break
		}
	}

	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, code, err.Error())
	case domain.IsAccessError(err):
		respondError(c, http.StatusForbidden, code, err.Error())
	case errors.Is(err, domain.ErrUserInactive):
		respondError(c, http.StatusForbidden, code, err.Error())
	case domain.IsAuthError(err):
		respondError(c, http.StatusUnauthorized, code, err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, code, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondError(c, http.StatusUnprocessableEntity, code, err.Error())
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, code, err.Error())
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal server error")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Request parsing helpers
// ──────────────────────────────────────────────────────────────────────────────

// parsePagination reads ?page and ?limit (1-based page, 1..100 limit).
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

// uuidParam parses a path parameter as a UUID. On failure it writes a 400
// and returns false.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional query parameter as a UUID.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid "+name)
		return nil, false
	}
	return &id, true
}

// ticketStatusQuery parses ?status for ticket listings.
func ticketStatusQuery(c *gin.Context) (*domain.TicketStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	s := domain.TicketStatus(raw)
	if !s.IsValid() {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid ticket status")
		return nil, false
	}
	return &s, true
}

// betStatusQuery parses ?status for bet listings.
func betStatusQuery(c *gin.Context) (*domain.BetStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	s := domain.BetStatus(raw)
	if !s.IsValid() {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid bet status")
		return nil, false
	}
	return &s, true
}

// bindJSON binds the request body and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return false
	}
	return true
}
