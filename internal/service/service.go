// Package service holds the transactional use cases of the league betting
// system. Every money-moving operation runs in one PostgreSQL transaction;
// events and cache invalidation happen only after commit.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/evetabi/betleague/internal/cache"
	"github.com/evetabi/betleague/internal/domain"
	"github.com/evetabi/betleague/internal/events"
	"github.com/evetabi/betleague/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const postCommitTimeout = 5 * time.Second

// ──────────────────────────────────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────────────────────────────────

// inTx runs fn inside a transaction. Any error from fn rolls the transaction
// back, so a failed precondition never leaves a partial write.
func inTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Access checks
// ──────────────────────────────────────────────────────────────────────────────

func requireMember(ctx context.Context, leagues *repository.LeagueRepository, leagueID, userID uuid.UUID) (*domain.Member, error) {
	return leagues.GetMember(ctx, leagueID, userID)
}

// requireAdmin returns ErrNotAMember for outsiders and ErrAccessDenied for
// members without the admin flag.
func requireAdmin(ctx context.Context, leagues *repository.LeagueRepository, leagueID, userID uuid.UUID) (*domain.Member, error) {
	m, err := leagues.GetMember(ctx, leagueID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin {
		return nil, domain.ErrAccessDenied
	}
	return m, nil
}

// sortedUserIDs returns the keys of a credit map in a fixed order so that
// multi-member locks are always taken in the same sequence.
func sortedUserIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// ──────────────────────────────────────────────────────────────────────────────
// Post-commit fan-out
// ──────────────────────────────────────────────────────────────────────────────

// postCommit carries the optional sinks notified after a transaction commits.
// Embedded by every service that changes league state.
type postCommit struct {
	log     *zap.Logger
	leagues *repository.LeagueRepository
	pub     events.Publisher
	board   cache.LeaderboardCache
}

func newPostCommit(log *zap.Logger, leagues *repository.LeagueRepository) postCommit {
	return postCommit{log: log, leagues: leagues, board: cache.NoopLeaderboard{}}
}

// SetPublisher injects the event sink post-construction.
func (p *postCommit) SetPublisher(pub events.Publisher) { p.pub = pub }

// SetLeaderboardCache injects the leaderboard cache post-construction.
func (p *postCommit) SetLeaderboardCache(c cache.LeaderboardCache) { p.board = c }

// afterCommit publishes evs and, when balancesChanged is set, drops the cached
// leaderboard and broadcasts a fresh one. Runs in a goroutine; failures are
// logged and never reach the caller.
func (p *postCommit) afterCommit(leagueID uuid.UUID, balancesChanged bool, evs ...events.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
		defer cancel()

		if balancesChanged {
			if err := p.board.Invalidate(ctx, leagueID); err != nil {
				p.log.Warn("leaderboard cache invalidate failed",
					zap.String("league_id", leagueID.String()), zap.Error(err))
			}
		}
		if p.pub == nil {
			return
		}
		for _, e := range evs {
			if err := p.pub.Publish(ctx, e); err != nil {
				p.log.Warn("event publish failed",
					zap.String("type", string(e.Type)),
					zap.String("league_id", leagueID.String()),
					zap.Error(err))
			}
		}
		if balancesChanged {
			board, err := p.leagues.Leaderboard(ctx, leagueID)
			if err != nil {
				p.log.Warn("leaderboard refresh failed", zap.String("league_id", leagueID.String()), zap.Error(err))
				return
			}
			if err := p.pub.Publish(ctx, events.New(events.LeaderboardUpdated, leagueID, board)); err != nil {
			p.log.Warn("event publish failed",
				zap.String("type", string(events.LeaderboardUpdated)),
				zap.String("league_id", leagueID.String()),
				zap.Error(err))
		}
		}
	}()
}
