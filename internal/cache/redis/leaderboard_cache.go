package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calebzhan/fflbot/internal/domain"
)

// LeaderboardCache implements domain.LeaderboardCache using plain Redis
// strings holding rendered leaderboard JSON at key "leaderboard:{leagueID}".
// Entries expire on their own; settlement also invalidates them eagerly so
// clients never see stale standings for long.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
// A non-positive ttl disables expiry-based eviction.
func NewLeaderboardCache(c *Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying(), ttl: ttl}
}

func leaderboardKey(leagueID int64) string {
	return "leaderboard:" + strconv.FormatInt(leagueID, 10)
}

// Set stores a rendered leaderboard payload for a league.
func (lc *LeaderboardCache) Set(ctx context.Context, leagueID int64, payload []byte) error {
	if err := lc.rdb.Set(ctx, leaderboardKey(leagueID), payload, lc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard %d: %w", leagueID, err)
	}
	return nil
}

// Get retrieves a cached leaderboard payload. It returns domain.ErrNotFound
// when no entry exists.
func (lc *LeaderboardCache) Get(ctx context.Context, leagueID int64) ([]byte, error) {
	data, err := lc.rdb.Get(ctx, leaderboardKey(leagueID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard %d: %w", leagueID, err)
	}
	return data, nil
}

// Invalidate drops the cached leaderboard for a league.
func (lc *LeaderboardCache) Invalidate(ctx context.Context, leagueID int64) error {
	if err := lc.rdb.Del(ctx, leaderboardKey(leagueID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard %d: %w", leagueID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
