package api

import (
	"net/http"

	"github.com/evetabi/betleague/internal/api/handler"
	"github.com/evetabi/betleague/internal/api/middleware"
	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/metrics"
	"github.com/evetabi/betleague/internal/service"
	"github.com/evetabi/betleague/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	LeagueSvc     *service.LeagueService
	TicketSvc     *service.TicketService
	BetSvc        *service.BetService
	SettlementSvc *service.SettlementService
	Hub           *ws.Hub
	Cfg           *config.Config
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	Registry      prometheus.Gatherer // nil disables /metrics
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(gin.Recovery())
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check / metrics ───────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.LeagueSvc, deps.BetSvc)
	leagueH := handler.NewLeagueHandler(deps.LeagueSvc)
	ticketH := handler.NewTicketHandler(deps.TicketSvc, deps.SettlementSvc)
	betH := handler.NewBetHandler(deps.BetSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10) // per IP on auth endpoints
	betRL := middleware.RateLimitMiddleware(30)  // per user on bet placement and cancellation

	v1 := r.Group("/api/v1")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := v1.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := v1.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			me := authed.Group("/me")
			{
				me.GET("", userH.Me)
				me.GET("/leagues", userH.MyLeagues)
				me.GET("/bets", userH.MyBets)
				me.GET("/stats", userH.MyStats)
			}

			// Leagues and membership
			leagues := authed.Group("/leagues")
			{
				leagues.POST("", leagueH.Create)
				leagues.POST("/join", leagueH.Join)
				leagues.GET("/:id", leagueH.Get)
				leagues.PATCH("/:id", leagueH.Update)
				leagues.PUT("/:id/status", leagueH.SetStatus)
				leagues.POST("/:id/leave", leagueH.Leave)
				leagues.GET("/:id/leaderboard", leagueH.Leaderboard)
				leagues.GET("/:id/balance", leagueH.Balance)
				leagues.GET("/:id/ledger", leagueH.Ledger)
				leagues.DELETE("/:id/members/:userId", leagueH.RemoveMember)
				leagues.POST("/:id/members/:userId/promote", leagueH.PromoteAdmin)
				leagues.POST("/:id/members/:userId/demote", leagueH.DemoteAdmin)

				leagues.GET("/:id/tickets", ticketH.ListByLeague)
				leagues.POST("/:id/tickets/moneyline", ticketH.CreateMoneyline)
				leagues.POST("/:id/tickets/over-under", ticketH.CreateOverUnder)

				leagues.GET("/:id/bets", betH.ListByLeague)
				leagues.GET("/:id/bets/recent", betH.RecentByLeague)
			}

			// Tickets
			tickets := authed.Group("/tickets")
			{
				tickets.GET("/:id", ticketH.Get)
				tickets.POST("/:id/options", ticketH.AddOption)
				tickets.POST("/:id/options/remove", ticketH.RemoveOption)
				tickets.PATCH("/:id/options/odds", ticketH.UpdateOdds)
				tickets.POST("/:id/close", ticketH.Close)
				tickets.POST("/:id/resolve", ticketH.Resolve)
				tickets.GET("/:id/bets", betH.ListByTicket)
				tickets.GET("/:id/my-bet", betH.MyBetOnTicket)
				tickets.POST("/:id/bets", betRL, betH.PlaceBet)
			}

			// Bets
			bets := authed.Group("/bets")
			{
				bets.GET("/:id", betH.Get)
				bets.DELETE("/:id", betRL, betH.Cancel)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// Outside production with no configured origins every origin is allowed.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	allowAll := !cfg.IsProd() && len(allowed) == 0

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
