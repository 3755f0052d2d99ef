package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDY GROUP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudyGroupRepository implements studygroup.Repository for PostgreSQL.
// Update runs the mutation inside a transaction holding a row lock on the
// group, so the race for the last seat resolves to exactly one winner.
type StudyGroupRepository struct {
	conn *Connection
}

// NewStudyGroupRepository creates a new StudyGroupRepository.
func NewStudyGroupRepository(conn *Connection) *StudyGroupRepository {
	return &StudyGroupRepository{conn: conn}
}

// Save inserts or updates a group and replaces its member list.
func (r *StudyGroupRepository) Save(ctx context.Context, group *studygroup.StudyGroup) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := upsertGroup(ctx, tx, group); err != nil {
			return err
		}
		return replaceMembers(ctx, tx, group)
	})
}

// Find returns a group with its members.
func (r *StudyGroupRepository) Find(ctx context.Context, id shared.GroupID) (*studygroup.StudyGroup, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, subject, description, capacity, schedule, location, level, is_online, tags
		FROM study_groups
		WHERE id = $1
	`, string(id))

	group, err := scanGroup(row)
	if IsNoRows(err) {
		return nil, shared.ErrUnknownGroup
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	members, err := r.groupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return group, nil
}

// All returns all groups with their members.
func (r *StudyGroupRepository) All(ctx context.Context) ([]*studygroup.StudyGroup, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, name, subject, description, capacity, schedule, location, level, is_online, tags
		FROM study_groups
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*studygroup.StudyGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, group := range groups {
		members, err := r.groupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.Members = members
	}

	return groups, nil
}

// Update applies fn to the group under a row lock and persists the
// result when fn returns nil. An error from fn discards the changes.
func (r *StudyGroupRepository) Update(ctx context.Context, id shared.GroupID, fn func(*studygroup.StudyGroup) error) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, name, subject, description, capacity, schedule, location, level, is_online, tags
			FROM study_groups
			WHERE id = $1
			FOR UPDATE
		`, string(id))

		group, err := scanGroup(row)
		if IsNoRows(err) {
			return shared.ErrUnknownGroup
		}
		if err != nil {
			return fmt.Errorf("failed to load group for update: %w", err)
		}

		members, err := membersTx(ctx, tx, id)
		if err != nil {
			return err
		}
		group.Members = members

		if err := fn(group); err != nil {
			return err
		}

		if err := upsertGroup(ctx, tx, group); err != nil {
			return err
		}
		return replaceMembers(ctx, tx, group)
	})
}

func (r *StudyGroupRepository) groupMembers(ctx context.Context, id shared.GroupID) ([]shared.StudentID, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT student_id FROM study_group_members
		WHERE group_id = $1
		ORDER BY joined_at
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()
	return collectMembers(rows)
}

func membersTx(ctx context.Context, tx pgx.Tx, id shared.GroupID) ([]shared.StudentID, error) {
	rows, err := tx.Query(ctx, `
		SELECT student_id FROM study_group_members
		WHERE group_id = $1
		ORDER BY joined_at
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()
	return collectMembers(rows)
}

func collectMembers(rows pgx.Rows) ([]shared.StudentID, error) {
	var members []shared.StudentID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, shared.StudentID(id))
	}
	return members, rows.Err()
}

func upsertGroup(ctx context.Context, q Querier, group *studygroup.StudyGroup) error {
	_, err := q.Exec(ctx, `
		INSERT INTO study_groups (id, name, subject, description, capacity, schedule, location, level, is_online, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			subject = EXCLUDED.subject,
			description = EXCLUDED.description,
			capacity = EXCLUDED.capacity,
			schedule = EXCLUDED.schedule,
			location = EXCLUDED.location,
			level = EXCLUDED.level,
			is_online = EXCLUDED.is_online,
			tags = EXCLUDED.tags
	`,
		string(group.ID),
		group.Name,
		group.Subject,
		group.Description,
		group.Capacity,
		group.Schedule,
		group.Location,
		string(group.Level),
		group.IsOnline,
		group.Tags,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// replaceMembers rewrites the membership rows to match the entity.
// Membership lists are small (group capacity is bounded), so a full
// rewrite is simpler than diffing.
func replaceMembers(ctx context.Context, q Querier, group *studygroup.StudyGroup) error {
	if _, err := q.Exec(ctx, `
		DELETE FROM study_group_members WHERE group_id = $1
	`, string(group.ID)); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}

	for _, member := range group.Members {
		if _, err := q.Exec(ctx, `
			INSERT INTO study_group_members (group_id, student_id)
			VALUES ($1, $2)
		`, string(group.ID), string(member)); err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

func scanGroup(row rowScanner) (*studygroup.StudyGroup, error) {
	var group studygroup.StudyGroup
	var id, level string

	err := row.Scan(
		&id,
		&group.Name,
		&group.Subject,
		&group.Description,
		&group.Capacity,
		&group.Schedule,
		&group.Location,
		&level,
		&group.IsOnline,
		&group.Tags,
	)
	if err != nil {
		return nil, err
	}

	group.ID = shared.GroupID(id)
	group.Level = studygroup.Level(level)
	return &group, nil
}
