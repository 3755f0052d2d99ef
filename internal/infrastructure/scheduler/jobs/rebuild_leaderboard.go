// Package jobs contains implementations of scheduled jobs for the
// engagement hub.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// StalenessSource reports a counter that grows whenever ranking input
// changes. The job skips a run when the counter has not moved since the
// last rebuild.
type StalenessSource interface {
	Version() int64
}

// RebuildLeaderboardJob rebuilds leaderboard snapshots for every
// configured period, refreshes the cached top, and publishes rank-change
// events computed from the diff against the previous snapshot.
type RebuildLeaderboardJob struct {
	// Dependencies
	ledgers   gamification.Repository
	repo      leaderboard.Repository
	cache     leaderboard.Cache
	publisher shared.EventPublisher
	staleness StalenessSource
	clock     shared.Clock
	logger    *slog.Logger

	// Configuration
	config RebuildLeaderboardConfig

	// State
	lastRebuildStats atomic.Value // *RebuildStats
	lastVersion      atomic.Int64
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// Periods to rebuild on every run.
	Periods []leaderboard.Period

	// CacheTopSize is how many entries of each snapshot go into the cache.
	CacheTopSize int

	// CacheTTL is the TTL for cached leaderboard data.
	CacheTTL time.Duration

	// MinRankChangeForEvent is the minimum absolute rank movement that
	// produces a RankChangedEvent. Zero publishes every movement.
	MinRankChangeForEvent int

	// SkipWhenFresh skips the run when no XP was awarded since the last
	// rebuild. Requires a StalenessSource.
	SkipWhenFresh bool

	// Timeout is the maximum duration for the rebuild operation.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Periods: []leaderboard.Period{
			leaderboard.PeriodDaily,
			leaderboard.PeriodWeekly,
			leaderboard.PeriodAllTime,
		},
		CacheTopSize:          100,
		CacheTTL:              5 * time.Minute,
		MinRankChangeForEvent: 1,
		SkipWhenFresh:         true,
		Timeout:               2 * time.Minute,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	Skipped          bool
	TotalStudents    int
	PeriodsProcessed int
	SnapshotsCreated int
	RankChangesFound int
	EventsPublished  int
	Errors           []error
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
// staleness and publisher may be nil.
func NewRebuildLeaderboardJob(
	ledgers gamification.Repository,
	repo leaderboard.Repository,
	cache leaderboard.Cache,
	publisher shared.EventPublisher,
	staleness StalenessSource,
	clock shared.Clock,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if len(config.Periods) == 0 {
		config.Periods = DefaultRebuildLeaderboardConfig().Periods
	}
	if config.CacheTopSize <= 0 {
		config.CacheTopSize = 100
	}

	j := &RebuildLeaderboardJob{
		ledgers:   ledgers,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		staleness: staleness,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
	j.lastVersion.Store(-1)
	return j
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds leaderboard snapshots and publishes rank-change events"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := j.clock.Now()
	stats := &RebuildStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	if j.config.SkipWhenFresh && j.staleness != nil {
		version := j.staleness.Version()
		if version == j.lastVersion.Load() {
			stats.Skipped = true
			stats.CompletedAt = j.clock.Now()
			stats.Duration = stats.CompletedAt.Sub(startedAt)
			j.lastRebuildStats.Store(stats)
			j.logger.Debug("leaderboard unchanged, rebuild skipped", "version", version)
			return nil
		}
		defer j.lastVersion.Store(version)
	}

	allLedgers, err := j.ledgers.AllLedgers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledgers: %w", err)
	}
	stats.TotalStudents = len(allLedgers)

	now := j.clock.Now()
	for _, period := range j.config.Periods {
		if err := j.rebuildPeriod(ctx, period, allLedgers, now, stats); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to rebuild leaderboard",
				"period", period,
				"error", err,
			)
		}
		stats.PeriodsProcessed++
	}

	stats.CompletedAt = j.clock.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRebuildStats.Store(stats)

	j.logger.Info("rebuild_leaderboard job completed",
		"duration", stats.Duration.String(),
		"total_students", stats.TotalStudents,
		"snapshots_created", stats.SnapshotsCreated,
		"rank_changes", stats.RankChangesFound,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("rebuild completed with %d errors", len(stats.Errors))
	}
	return nil
}

// rebuildPeriod rebuilds the snapshot for a single period.
func (j *RebuildLeaderboardJob) rebuildPeriod(
	ctx context.Context,
	period leaderboard.Period,
	allLedgers []*gamification.XPLedger,
	now time.Time,
	stats *RebuildStats,
) error {
	scores := scoresForPeriod(period, allLedgers, now)

	previous, err := j.repo.LatestSnapshot(ctx, period)
	if err != nil && !errors.Is(err, shared.ErrSnapshotNotFound) {
		return fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	snapshot, diff, err := leaderboard.BuildSnapshot(uuid.New().String(), period, scores, previous, now)
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}

	if err := j.repo.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	stats.SnapshotsCreated++

	if j.cache != nil {
		top := snapshot.Top(j.config.CacheTopSize)
		if err := j.cache.SetCachedTop(ctx, period, top, j.config.CacheTTL); err != nil {
			j.logger.Warn("failed to cache top entries",
				"period", period,
				"error", err,
			)
		}
	}

	j.publishChanges(snapshot, diff, stats)

	j.logger.Debug("leaderboard rebuilt",
		"period", period,
		"students", snapshot.TotalStudents,
	)
	return nil
}

// publishChanges emits rank-change events from the diff plus a single
// rebuilt event per snapshot.
func (j *RebuildLeaderboardJob) publishChanges(snapshot *leaderboard.Snapshot, diff *leaderboard.Diff, stats *RebuildStats) {
	if diff != nil {
		for studentID, change := range diff.RankChanges {
			if change == 0 {
				continue
			}
			stats.RankChangesFound++

			if j.publisher == nil || change.Abs() < j.config.MinRankChangeForEvent {
				continue
			}
			entry := snapshot.GetByID(studentID)
			if entry == nil {
				continue
			}
			oldRank := int(entry.Rank) + int(change)
			event := shared.NewRankChangedEvent(string(studentID), oldRank, int(entry.Rank), string(snapshot.Period))
			if err := j.publisher.Publish(event); err != nil {
				j.logger.Warn("failed to publish rank change",
					"student_id", studentID,
					"error", err,
				)
				continue
			}
			stats.EventsPublished++
		}
	}

	if j.publisher != nil {
		event := shared.NewLeaderboardRebuiltEvent(snapshot.ID, string(snapshot.Period), snapshot.TotalStudents, stats.RankChangesFound)
		if err := j.publisher.Publish(event); err != nil {
			j.logger.Warn("failed to publish rebuilt event", "error", err)
		} else {
			stats.EventsPublished++
		}
	}
}

// scoresForPeriod converts ledgers into ranking input. Daily and weekly
// boards only rank students whose last XP activity falls inside the
// period window; the all-time board ranks everyone.
func scoresForPeriod(period leaderboard.Period, allLedgers []*gamification.XPLedger, now time.Time) []leaderboard.Score {
	windowStart := period.WindowStart(now)
	scores := make([]leaderboard.Score, 0, len(allLedgers))
	for _, ledger := range allLedgers {
		if !windowStart.IsZero() && ledger.AttainedAt.Before(windowStart) {
			continue
		}
		scores = append(scores, leaderboard.Score{
			StudentID:  ledger.StudentID,
			XP:         ledger.TotalXP,
			Level:      ledger.Level,
			AttainedAt: ledger.AttainedAt,
		})
	}
	return scores
}

// LastRebuildStats returns statistics from the last rebuild.
func (j *RebuildLeaderboardJob) LastRebuildStats() *RebuildStats {
	stats := j.lastRebuildStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}
