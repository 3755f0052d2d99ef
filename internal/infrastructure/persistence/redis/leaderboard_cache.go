package redis

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.Cache backed by Redis.
// Cached pages are whole JSON documents: the board is rebuilt by the
// worker, so partial updates buy nothing.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// cachedEntry is the JSON shape of a cached leaderboard entry.
type cachedEntry struct {
	Rank        int       `json:"rank"`
	StudentID   string    `json:"student_id"`
	XP          int       `json:"xp"`
	Level       int       `json:"level"`
	AttainedAt  time.Time `json:"attained_at"`
	RankChange  int       `json:"rank_change"`
	ChangeKnown bool      `json:"change_known"`
}

// CachedTop returns the cached top-N for a period. A miss, an expired
// key, or a cached list shorter than limit all return (nil, nil).
func (c *LeaderboardCache) CachedTop(ctx context.Context, period leaderboard.Period, limit int) ([]*leaderboard.Entry, error) {
	var cached []cachedEntry
	err := c.cache.Get(ctx, LeaderboardKey(string(period)), &cached)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(cached) < limit {
		return nil, nil
	}

	entries := make([]*leaderboard.Entry, 0, limit)
	for _, e := range cached[:limit] {
		entries = append(entries, &leaderboard.Entry{
			Rank:        leaderboard.Rank(e.Rank),
			StudentID:   shared.StudentID(e.StudentID),
			XP:          shared.XP(e.XP),
			Level:       e.Level,
			AttainedAt:  e.AttainedAt,
			RankChange:  leaderboard.RankChange(e.RankChange),
			ChangeKnown: e.ChangeKnown,
		})
	}
	return entries, nil
}

// SetCachedTop stores the top-N for a period with a TTL.
func (c *LeaderboardCache) SetCachedTop(ctx context.Context, period leaderboard.Period, entries []*leaderboard.Entry, ttl time.Duration) error {
	cached := make([]cachedEntry, len(entries))
	for i, e := range entries {
		cached[i] = cachedEntry{
			Rank:        int(e.Rank),
			StudentID:   string(e.StudentID),
			XP:          int(e.XP),
			Level:       e.Level,
			AttainedAt:  e.AttainedAt,
			RankChange:  int(e.RankChange),
			ChangeKnown: e.ChangeKnown,
		}
	}
	return c.cache.Set(ctx, LeaderboardKey(string(period)), cached, ttl)
}

// Invalidate drops the cached top for a period.
func (c *LeaderboardCache) Invalidate(ctx context.Context, period leaderboard.Period) error {
	return c.cache.Delete(ctx, LeaderboardKey(string(period)))
}
