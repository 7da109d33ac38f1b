package handler

import (
	"net/http"

	"github.com/evetabi/betleague/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserAdminHandler serves /admin/users endpoints.
type UserAdminHandler struct {
	userRepo   *repository.UserRepository
	leagueRepo *repository.LeagueRepository
	betRepo    *repository.BetRepository
	log        *zap.Logger
}

// NewUserAdminHandler creates a UserAdminHandler.
func NewUserAdminHandler(
	userRepo *repository.UserRepository,
	leagueRepo *repository.LeagueRepository,
	betRepo *repository.BetRepository,
	log *zap.Logger,
) *UserAdminHandler {
	return &UserAdminHandler{userRepo: userRepo, leagueRepo: leagueRepo, betRepo: betRepo, log: log}
}

// List godoc
// GET /admin/users?page=1&limit=50
func (h *UserAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	users, total, err := h.userRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondList(c, users, total, page, limit)
}

// Detail godoc
// GET /admin/users/:id
func (h *UserAdminHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "user")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.userRepo.GetByID(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	leagues, err := h.leagueRepo.ListByUser(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	stats, err := h.betRepo.Stats(ctx, id, nil)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"user":    user,
		"leagues": leagues,
		"stats":   stats,
	})
}

// Suspend godoc
// POST /admin/users/:id/suspend
func (h *UserAdminHandler) Suspend(c *gin.Context) {
	h.setActive(c, false)
}

// Activate godoc
// POST /admin/users/:id/activate
func (h *UserAdminHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserAdminHandler) setActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "user")
	if !ok {
		return
	}
	if err := h.userRepo.SetActive(c.Request.Context(), id, active); err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("admin: user active flag changed",
		zap.String("admin", adminID(c)), zap.String("user_id", id.String()), zap.Bool("active", active))
	respondSuccess(c, http.StatusOK, gin.H{"user_id": id, "is_active": active})
}
