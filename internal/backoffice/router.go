package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/backoffice/handler"
	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"github.com/evetabi/betleague/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc    *service.AuthService
	LeagueSvc  *service.LeagueService
	TicketSvc  *service.TicketService
	UserRepo   *repository.UserRepository
	LeagueRepo *repository.LeagueRepository
	TicketRepo *repository.TicketRepository
	BetRepo    *repository.BetRepository
	Hub        *ws.Hub // optional; only used for the connection count
	Cfg        *config.Config
	Log        *zap.Logger
}

// SetupBackofficeRouter creates the admin Gin engine served on BackofficePort.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log.Named("backoffice")))
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.UserRepo, deps.LeagueRepo, deps.TicketRepo, deps.BetRepo, deps.Hub)
	userH := handler.NewUserAdminHandler(deps.UserRepo, deps.LeagueRepo, deps.BetRepo, log)
	leagueH := handler.NewLeagueAdminHandler(deps.LeagueSvc, deps.TicketSvc, deps.LeagueRepo, log)

	admin := r.Group("/admin")
	admin.Use(middleware.JWTMiddleware(deps.AuthSvc), middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", userH.Suspend)
			u.POST("/:id/activate", userH.Activate)
		}

		// Leagues
		l := admin.Group("/leagues")
		{
			l.GET("", leagueH.List)
			l.GET("/:id", leagueH.Detail)
			l.POST("/:id/status", leagueH.SetStatus)
			l.GET("/:id/tickets", leagueH.Tickets)
		}

		// Tickets
		admin.POST("/tickets/:id/close", leagueH.ForceCloseTicket)
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_IP_FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
