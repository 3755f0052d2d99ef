package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE CHALLENGES JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireChallengesJob sweeps active quiz sessions past their deadline into
// the expired state and evicts terminal sessions older than the retention
// window. Expiry is also checked lazily on every session access; the sweep
// exists so abandoned sessions still transition and eventually disappear.
type ExpireChallengesJob struct {
	// Dependencies
	store     challenge.SessionStore
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger

	// Configuration
	config ExpireChallengesConfig

	// State
	lastSweepStats atomic.Value // *SweepStats
}

// ExpireChallengesConfig contains configuration for the sweep job.
type ExpireChallengesConfig struct {
	// Retention is how long terminal sessions stay available for review
	// before eviction.
	Retention time.Duration

	// Timeout is the maximum duration for one sweep.
	Timeout time.Duration
}

// DefaultExpireChallengesConfig returns sensible defaults.
func DefaultExpireChallengesConfig() ExpireChallengesConfig {
	return ExpireChallengesConfig{
		Retention: 24 * time.Hour,
		Timeout:   time.Minute,
	}
}

// SweepStats contains statistics from a sweep run.
type SweepStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Scanned     int
	Expired     int
	Evicted     int
	Errors      []error
}

// NewExpireChallengesJob creates a new sweep job. publisher may be nil.
func NewExpireChallengesJob(
	store challenge.SessionStore,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
	config ExpireChallengesConfig,
) *ExpireChallengesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if config.Retention <= 0 {
		config.Retention = DefaultExpireChallengesConfig().Retention
	}

	return &ExpireChallengesJob{
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// Name returns the job name.
func (j *ExpireChallengesJob) Name() string {
	return "expire_challenges"
}

// Description returns a human-readable description.
func (j *ExpireChallengesJob) Description() string {
	return "Expires overdue quiz sessions and evicts terminal sessions past retention"
}

// Run executes one sweep.
func (j *ExpireChallengesJob) Run(ctx context.Context) error {
	startedAt := j.clock.Now()
	stats := &SweepStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	sessions, err := j.store.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active sessions: %w", err)
	}
	stats.Scanned = len(sessions)

	now := j.clock.Now()
	for _, session := range sessions {
		if !session.ExpireIfDue(now) {
			continue
		}
		if err := j.store.Save(ctx, session); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("failed to persist expired session",
				"session_id", session.ID,
				"error", err,
			)
			continue
		}
		stats.Expired++

		if j.publisher != nil {
			event := shared.NewChallengeExpiredEvent(session.ID, string(session.StudentID), session.Deadline())
			if err := j.publisher.Publish(event); err != nil {
				j.logger.Warn("failed to publish expiry event",
					"session_id", session.ID,
					"error", err,
				)
			}
		}
	}

	evicted, err := j.store.DeleteOlderThan(ctx, now.Add(-j.config.Retention))
	if err != nil {
		stats.Errors = append(stats.Errors, err)
		j.logger.Error("failed to evict old sessions", "error", err)
	}
	stats.Evicted = evicted

	stats.CompletedAt = j.clock.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastSweepStats.Store(stats)

	j.logger.Info("expire_challenges job completed",
		"duration", stats.Duration.String(),
		"scanned", stats.Scanned,
		"expired", stats.Expired,
		"evicted", stats.Evicted,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("sweep completed with %d errors", len(stats.Errors))
	}
	return nil
}

// LastSweepStats returns statistics from the last sweep.
func (j *ExpireChallengesJob) LastSweepStats() *SweepStats {
	stats := j.lastSweepStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*SweepStats)
}
