package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE SNAPSHOTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PruneSnapshotsJob removes leaderboard snapshots older than the retention
// window. The repository keeps the latest snapshot per period regardless
// of age, so rank deltas always have a baseline.
type PruneSnapshotsJob struct {
	repo      leaderboard.Repository
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
	retention time.Duration
}

// NewPruneSnapshotsJob creates a new prune job. publisher may be nil.
func NewPruneSnapshotsJob(
	repo leaderboard.Repository,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
	retention time.Duration,
) *PruneSnapshotsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &PruneSnapshotsJob{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		retention: retention,
	}
}

// Name returns the job name.
func (j *PruneSnapshotsJob) Name() string {
	return "prune_snapshots"
}

// Description returns a human-readable description.
func (j *PruneSnapshotsJob) Description() string {
	return "Removes leaderboard snapshots older than the retention window"
}

// Run executes one prune pass.
func (j *PruneSnapshotsJob) Run(ctx context.Context) error {
	cutoff := j.clock.Now().Add(-j.retention)

	removed, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if removed > 0 {
		j.logger.Info("old snapshots pruned",
			"removed", removed,
			"cutoff", cutoff.Format(time.RFC3339),
		)
		if j.publisher != nil {
			event := shared.NewSnapshotPrunedEvent(removed, cutoff)
			if err := j.publisher.Publish(event); err != nil {
				j.logger.Warn("failed to publish prune event", "error", err)
			}
		}
	}

	return nil
}
