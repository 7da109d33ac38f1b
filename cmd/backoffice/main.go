// Package main is the entry point for the betleague back-office admin server.
// Runs on BACKOFFICE_PORT and exposes site-admin endpoints behind an IP
// allowlist and the admin role.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/evetabi/betleague/internal/backoffice"
	"github.com/evetabi/betleague/internal/config"
	"github.com/evetabi/betleague/internal/database"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/logger"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/evetabi/betleague/internal/service"
	"go.uber.org/zap"
)

func main() {
	// ── Config + logger ───────────────────────────────────────────────────────
	cfg := config.MustLoad()

	log, err := logger.New("betleague-backoffice", cfg.Server.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting betleague backoffice server",
		zap.String("env", cfg.Server.Env), zap.String("port", cfg.Server.BackofficePort))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	// The API server owns migrations; the backoffice only connects.
	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connected")

	// ── Repositories ──────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	leagueRepo := repository.NewLeagueRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	betRepo := repository.NewBetRepository(db)

	// ── Services ──────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg, log.Named("auth"))
	leagueSvc := service.NewLeagueService(db, leagueRepo, betRepo, cfg, log.Named("league"))
	ticketSvc := service.NewTicketService(db, ticketRepo, leagueRepo, log.Named("ticket"))

	// Admin overrides reach API-side consumers only through Kafka.
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, events.Topic(cfg.Kafka.TopicPrefix))
		defer func() { _ = kp.Close() }()
		leagueSvc.SetPublisher(kp)
		ticketSvc.SetPublisher(kp)
	}

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:    authSvc,
		LeagueSvc:  leagueSvc,
		TicketSvc:  ticketSvc,
		UserRepo:   userRepo,
		LeagueRepo: leagueRepo,
		TicketRepo: ticketRepo,
		BetRepo:    betRepo,
		Hub:        nil, // backoffice does not directly serve WS
		Cfg:        cfg,
		Log:        log.Named("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		log.Info("backoffice http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("backoffice server error", zap.Error(err))
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("backoffice shutdown error", zap.Error(err))
	}
	log.Info("backoffice server stopped cleanly")
}
