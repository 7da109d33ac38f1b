// Package scheduler runs the league housekeeping jobs on cron schedules:
//  1. close-tickets     – flips open tickets past their deadline to closed.
//  2. complete-leagues  – completes active leagues past their end date.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 30 * time.Second

// ──────────────────────────────────────────────────────────────────────────────
// Dependencies
// ──────────────────────────────────────────────────────────────────────────────

// TicketCloser is satisfied by *service.TicketService.
type TicketCloser interface {
	CloseExpired(ctx context.Context) (int, error)
}

// LeagueCompleter is satisfied by *service.LeagueService.
type LeagueCompleter interface {
	CompleteExpired(ctx context.Context) (int, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler owns the cron runner. Call Start(ctx) once from main(); cancel
// the context to stop it and wait for in-flight jobs.
type Scheduler struct {
	tickets TicketCloser
	leagues LeagueCompleter
	cfg     config.SchedulerConfig
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewScheduler creates a Scheduler.
func NewScheduler(tickets TicketCloser, leagues LeagueCompleter, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tickets: tickets,
		leagues: leagues,
		cfg:     cfg,
		logger:  logger,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()}))),
	}
}

// Start registers the jobs and launches the cron runner. It returns
// immediately; jobs run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (int, error)
	}{
		{"close-tickets", s.cfg.CloseTicketsSpec, s.tickets.CloseExpired},
		{"complete-leagues", s.cfg.CompleteLeagueSpec, s.leagues.CompleteExpired},
	}
	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(ctx, j.name, j.run) }); err != nil {
			return fmt.Errorf("scheduler: job %s spec %q: %w", j.name, j.spec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("close_tickets", s.cfg.CloseTicketsSpec),
		zap.String("complete_leagues", s.cfg.CompleteLeagueSpec))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	}()
	return nil
}

// RunNow runs every job once, synchronously. Used at startup so deadlines
// that passed while the server was down are applied immediately.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runJob(ctx, "close-tickets", s.tickets.CloseExpired)
	s.runJob(ctx, "complete-leagues", s.leagues.CompleteExpired)
}

func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) (int, error)) {
	defer s.recoverAndLog(name)

	if ctx.Err() != nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := run(jobCtx)
	if err != nil {
		s.logger.Error("scheduler job failed", zap.String("job", name), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("scheduler job done", zap.String("job", name), zap.Int("affected", n))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each job to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(job string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler job",
			zap.String("job", job), zap.Any("panic", r), zap.Stack("stack"))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
