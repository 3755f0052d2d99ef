package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// LeaderboardRepo хранит снапшоты рейтинга в памяти процесса.
type LeaderboardRepo struct {
	mu       sync.RWMutex
	byID     map[string]*leaderboard.Snapshot
	byPeriod map[leaderboard.Period][]*leaderboard.Snapshot // в порядке сохранения
}

// NewLeaderboardRepo создаёт пустой репозиторий.
func NewLeaderboardRepo() *LeaderboardRepo {
	return &LeaderboardRepo{
		byID:     make(map[string]*leaderboard.Snapshot),
		byPeriod: make(map[leaderboard.Period][]*leaderboard.Snapshot),
	}
}

// SaveSnapshot реализует leaderboard.Repository.
func (r *LeaderboardRepo) SaveSnapshot(_ context.Context, snapshot *leaderboard.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[snapshot.ID] = snapshot
	r.byPeriod[snapshot.Period] = append(r.byPeriod[snapshot.Period], snapshot)
	return nil
}

// LatestSnapshot реализует leaderboard.Repository.
func (r *LeaderboardRepo) LatestSnapshot(_ context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byPeriod[period]
	if len(list) == 0 {
		return nil, shared.ErrSnapshotNotFound
	}
	return list[len(list)-1], nil
}

// SnapshotByID реализует leaderboard.Repository.
func (r *LeaderboardRepo) SnapshotByID(_ context.Context, id string) (*leaderboard.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrSnapshotNotFound
	}
	return snapshot, nil
}

// DeleteOlderThan реализует leaderboard.Repository. Последний снапшот
// каждого периода сохраняется независимо от возраста.
func (r *LeaderboardRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for period, list := range r.byPeriod {
		if len(list) == 0 {
			continue
		}
		kept := make([]*leaderboard.Snapshot, 0, len(list))
		for i, snapshot := range list {
			latest := i == len(list)-1
			if !latest && snapshot.SnapshotAt.Before(cutoff) {
				delete(r.byID, snapshot.ID)
				deleted++
				continue
			}
			kept = append(kept, snapshot)
		}
		r.byPeriod[period] = kept
	}
	return deleted, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// КЭШ ТОПА
// ══════════════════════════════════════════════════════════════════════════════

type cachedTop struct {
	entries   []*leaderboard.Entry
	expiresAt time.Time
}

// LeaderboardCache — in-memory реализация leaderboard.Cache с TTL.
type LeaderboardCache struct {
	mu    sync.RWMutex
	tops  map[leaderboard.Period]cachedTop
	clock shared.Clock
}

// NewLeaderboardCache создаёт пустой кэш.
func NewLeaderboardCache(clock shared.Clock) *LeaderboardCache {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &LeaderboardCache{tops: make(map[leaderboard.Period]cachedTop), clock: clock}
}

// CachedTop реализует leaderboard.Cache. Промах кэша — (nil, nil).
// Кэш с меньшим числом записей, чем limit, считается промахом.
func (c *LeaderboardCache) CachedTop(_ context.Context, period leaderboard.Period, limit int) ([]*leaderboard.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	top, ok := c.tops[period]
	if !ok || c.clock.Now().After(top.expiresAt) {
		return nil, nil
	}
	entries := top.entries
	if limit < len(entries) {
		entries = entries[:limit]
	} else if limit > len(entries) {
		return nil, nil
	}
	out := make([]*leaderboard.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out, nil
}

// SetCachedTop реализует leaderboard.Cache.
func (c *LeaderboardCache) SetCachedTop(_ context.Context, period leaderboard.Period, entries []*leaderboard.Entry, ttl time.Duration) error {
	cloned := make([]*leaderboard.Entry, len(entries))
	for i, e := range entries {
		cloned[i] = e.Clone()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tops[period] = cachedTop{entries: cloned, expiresAt: c.clock.Now().Add(ttl)}
	return nil
}

// Invalidate реализует leaderboard.Cache.
func (c *LeaderboardCache) Invalidate(_ context.Context, period leaderboard.Period) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tops, period)
	return nil
}
