// Package main is the entry point for the betleague API server. It wires
// together all services and starts the HTTP server alongside the WebSocket
// hub, the housekeeping scheduler and the optional Redis and Kafka sinks.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/betleague/internal/api"
	"github.com/evetabi/betleague/internal/cache"
	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/database"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/logger"
	"github.com/evetabi/betleague/internal/metrics"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/scheduler"
	"github.com/evetabi/betleague/internal/service"
	"github.com/evetabi/betleague/internal/ws"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	log, err := logger.New("betleague-api", cfg.Server.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting betleague api server", zap.String("env", cfg.Server.Env), zap.String("port", cfg.Server.Port))

	// ── 2. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 3. Database + migrations ──────────────────────────────────────────────
	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connected")

	version, err := database.MigrateUp(db)
	if err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	log.Info("migrations applied", zap.Uint("version", version))

	// ── 4. Metrics ────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── 5. Repositories ───────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	leagueRepo := repository.NewLeagueRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	betRepo := repository.NewBetRepository(db)

	// ── 6. Services ───────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg, log.Named("auth"))
	leagueSvc := service.NewLeagueService(db, leagueRepo, betRepo, cfg, log.Named("league"))
	ticketSvc := service.NewTicketService(db, ticketRepo, leagueRepo, log.Named("ticket"))
	betSvc := service.NewBetService(db, betRepo, ticketRepo, leagueRepo, cfg, log.Named("bet"), m)
	settlementSvc := service.NewSettlementService(db, ticketRepo, betRepo, leagueRepo, log.Named("settlement"), m)

	// ── 7. Optional leaderboard cache ─────────────────────────────────────────
	var board cache.LeaderboardCache = cache.NoopLeaderboard{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		board = cache.NewRedisLeaderboard(rdb, cfg.Redis.LeaderboardTTL)
		log.Info("leaderboard cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// ── 8. Event sinks: WebSocket hub + optional Kafka ────────────────────────
	hub := ws.NewHub(wsAuthorizer(authSvc, leagueRepo), cfg.Server.AllowedOrigins, log.Named("ws"))
	go hub.Run(ctx)

	sinks := events.Fanout{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, events.Topic(cfg.Kafka.TopicPrefix))
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		sinks = append(sinks, kp)
		log.Info("kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", kp.Topic))
	}

	leagueSvc.SetPublisher(sinks)
	ticketSvc.SetPublisher(sinks)
	betSvc.SetPublisher(sinks)
	settlementSvc.SetPublisher(sinks)

	leagueSvc.SetLeaderboardCache(board)
	ticketSvc.SetLeaderboardCache(board)
	betSvc.SetLeaderboardCache(board)
	settlementSvc.SetLeaderboardCache(board)

	// ── 9. Scheduler ──────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(ticketSvc, leagueSvc, cfg.Scheduler, log.Named("scheduler"))
		sched.RunNow(ctx)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("scheduler start failed", zap.Error(err))
		}
	}

	// ── 10. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		LeagueSvc:     leagueSvc,
		TicketSvc:     ticketSvc,
		BetSvc:        betSvc,
		SettlementSvc: settlementSvc,
		Hub:           hub,
		Cfg:           cfg,
		Log:           log.Named("http"),
		Metrics:       m,
		Registry:      reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ──────────────────────────────────────────────────────
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped cleanly")
}

// wsAuthorizer admits a WebSocket client when its access token is valid and
// the user is a member of the league it wants to watch.
func wsAuthorizer(auth *service.AuthService, leagues *repository.LeagueRepository) ws.AuthorizeFunc {
	return func(ctx context.Context, token string, leagueID uuid.UUID) (uuid.UUID, error) {
		claims, err := auth.ValidateAccessToken(token)
		if err != nil {
			return uuid.Nil, err
		}
		userID, err := claims.UserID()
		if err != nil {
			return uuid.Nil, err
		}
		if _, err := leagues.GetMember(ctx, leagueID, userID); err != nil {
			return uuid.Nil, err
		}
		return userID, nil
	}
}
