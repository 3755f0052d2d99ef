package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// SaveSnapshot saves a leaderboard snapshot with all its entries.
func (r *LeaderboardRepository) SaveSnapshot(ctx context.Context, snapshot *leaderboard.Snapshot) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO leaderboard_snapshots (id, period, snapshot_at, total_students)
			VALUES ($1, $2, $3, $4)
		`,
			snapshot.ID,
			string(snapshot.Period),
			snapshot.SnapshotAt,
			snapshot.TotalStudents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		if len(snapshot.Entries) > 0 {
			batch := &pgx.Batch{}
			for _, entry := range snapshot.Entries {
				batch.Queue(`
					INSERT INTO leaderboard_entries
					(snapshot_id, rank, student_id, xp, level, attained_at, rank_change, change_known)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				`,
					snapshot.ID,
					int(entry.Rank),
					string(entry.StudentID),
					int(entry.XP),
					entry.Level,
					entry.AttainedAt,
					int(entry.RankChange),
					entry.ChangeKnown,
				)
			}

			br := tx.SendBatch(ctx, batch)
			defer br.Close()

			for range snapshot.Entries {
				if _, err := br.Exec(); err != nil {
					return fmt.Errorf("failed to insert entry: %w", err)
				}
			}
		}

		return nil
	})
}

// LatestSnapshot returns the most recent snapshot for a period.
func (r *LeaderboardRepository) LatestSnapshot(ctx context.Context, period leaderboard.Period) (*leaderboard.Snapshot, error) {
	var snapshot leaderboard.Snapshot
	var periodStr string

	err := r.conn.QueryRow(ctx, `
		SELECT id, period, snapshot_at, total_students
		FROM leaderboard_snapshots
		WHERE period = $1
		ORDER BY snapshot_at DESC
		LIMIT 1
	`, string(period)).Scan(
		&snapshot.ID,
		&periodStr,
		&snapshot.SnapshotAt,
		&snapshot.TotalStudents,
	)

	if IsNoRows(err) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	snapshot.Period = leaderboard.Period(periodStr)

	entries, err := r.snapshotEntries(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}
	snapshot.Entries = entries
	snapshot.RebuildIndex()

	return &snapshot, nil
}

// SnapshotByID returns a snapshot by ID.
func (r *LeaderboardRepository) SnapshotByID(ctx context.Context, id string) (*leaderboard.Snapshot, error) {
	var snapshot leaderboard.Snapshot
	var periodStr string

	err := r.conn.QueryRow(ctx, `
		SELECT id, period, snapshot_at, total_students
		FROM leaderboard_snapshots
		WHERE id = $1
	`, id).Scan(
		&snapshot.ID,
		&periodStr,
		&snapshot.SnapshotAt,
		&snapshot.TotalStudents,
	)

	if IsNoRows(err) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot by id: %w", err)
	}

	snapshot.Period = leaderboard.Period(periodStr)

	entries, err := r.snapshotEntries(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}
	snapshot.Entries = entries
	snapshot.RebuildIndex()

	return &snapshot, nil
}

// DeleteOlderThan deletes snapshots older than the cutoff, keeping the
// latest snapshot of each period regardless of age. Entries cascade.
func (r *LeaderboardRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.conn.Exec(ctx, `
		DELETE FROM leaderboard_snapshots
		WHERE snapshot_at < $1
		  AND id NOT IN (
			SELECT DISTINCT ON (period) id
			FROM leaderboard_snapshots
			ORDER BY period, snapshot_at DESC
		  )
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// snapshotEntries loads all entries for a snapshot ordered by rank.
func (r *LeaderboardRepository) snapshotEntries(ctx context.Context, snapshotID string) ([]*leaderboard.Entry, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT rank, student_id, xp, level, attained_at, rank_change, change_known
		FROM leaderboard_entries
		WHERE snapshot_id = $1
		ORDER BY rank
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot entries: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	for rows.Next() {
		var entry leaderboard.Entry
		var rank, xp, rankChange int
		var studentID string

		if err := rows.Scan(
			&rank,
			&studentID,
			&xp,
			&entry.Level,
			&entry.AttainedAt,
			&rankChange,
			&entry.ChangeKnown,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		entry.Rank = leaderboard.Rank(rank)
		entry.StudentID = shared.StudentID(studentID)
		entry.XP = shared.XP(xp)
		entry.RankChange = leaderboard.RankChange(rankChange)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
