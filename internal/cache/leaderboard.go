// Package cache keeps short-lived copies of read-heavy league views in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache stores computed leaderboards per league. A miss returns
// (nil, false, nil).
type LeaderboardCache interface {
	Get(ctx context.Context, leagueID uuid.UUID) ([]domain.LeaderboardEntry, bool, error)
	Set(ctx context.Context, leagueID uuid.UUID, board []domain.LeaderboardEntry) error
	Invalidate(ctx context.Context, leagueID uuid.UUID) error
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache.NewRedisClient: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisLeaderboard is the Redis-backed LeaderboardCache.
type RedisLeaderboard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLeaderboard(rdb *redis.Client, ttl time.Duration) *RedisLeaderboard {
	return &RedisLeaderboard{rdb: rdb, ttl: ttl}
}

func leaderboardKey(leagueID uuid.UUID) string {
	return "betleague:leaderboard:" + leagueID.String()
}

func (c *RedisLeaderboard) Get(ctx context.Context, leagueID uuid.UUID) ([]domain.LeaderboardEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, leaderboardKey(leagueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.Leaderboard.Get: %w", err)
	}
	var board []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &board); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return board, true, nil
}

func (c *RedisLeaderboard) Set(ctx context.Context, leagueID uuid.UUID, board []domain.LeaderboardEntry) error {
	raw, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("cache.Leaderboard.Set: %w", err)
	}
	if err := c.rdb.Set(ctx, leaderboardKey(leagueID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Leaderboard.Set: %w", err)
	}
	return nil
}

func (c *RedisLeaderboard) Invalidate(ctx context.Context, leagueID uuid.UUID) error {
	if err := c.rdb.Del(ctx, leaderboardKey(leagueID)).Err(); err != nil {
		return fmt.Errorf("cache.Leaderboard.Invalidate: %w", err)
	}
	return nil
}

// NoopLeaderboard never hits. Used when Redis is not configured.
type NoopLeaderboard struct{}

func (NoopLeaderboard) Get(context.Context, uuid.UUID) ([]domain.LeaderboardEntry, bool, error) {
	return nil, false, nil
}
func (NoopLeaderboard) Set(context.Context, uuid.UUID, []domain.LeaderboardEntry) error { return nil }
func (NoopLeaderboard) Invalidate(context.Context, uuid.UUID) error                    { return nil }
