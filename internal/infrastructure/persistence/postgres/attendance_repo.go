package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE EVENT STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStore implements attendance.EventStore for PostgreSQL.
// The table is append-only; ordering per (student, subject) is enforced
// by the ledger above this layer.
type AttendanceStore struct {
	conn *Connection
}

// NewAttendanceStore creates a new AttendanceStore.
func NewAttendanceStore(conn *Connection) *AttendanceStore {
	return &AttendanceStore{conn: conn}
}

// Append stores a new attendance event.
func (s *AttendanceStore) Append(ctx context.Context, event attendance.Event) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO attendance_events (student_id, subject_id, present, check_in_at)
		VALUES ($1, $2, $3, $4)
	`,
		string(event.StudentID),
		string(event.SubjectID),
		event.Present,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append attendance event: %w", err)
	}
	return nil
}

// LastTimestamp returns the most recent check-in time for the pair.
func (s *AttendanceStore) LastTimestamp(ctx context.Context, studentID shared.StudentID, subjectID shared.SubjectID) (time.Time, bool, error) {
	var ts time.Time
	err := s.conn.QueryRow(ctx, `
		SELECT check_in_at
		FROM attendance_events
		WHERE student_id = $1 AND subject_id = $2
		ORDER BY check_in_at DESC
		LIMIT 1
	`, string(studentID), string(subjectID)).Scan(&ts)

	if IsNoRows(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get last timestamp: %w", err)
	}
	return ts.UTC(), true, nil
}

// EventsByStudent returns events in chronological order. An empty
// subjectID returns events across all subjects.
func (s *AttendanceStore) EventsByStudent(ctx context.Context, studentID shared.StudentID, subjectID shared.SubjectID) ([]attendance.Event, error) {
	query := `
		SELECT student_id, subject_id, present, check_in_at
		FROM attendance_events
		WHERE student_id = $1
		ORDER BY check_in_at
	`
	args := []interface{}{string(studentID)}
	if subjectID != "" {
		query = `
			SELECT student_id, subject_id, present, check_in_at
			FROM attendance_events
			WHERE student_id = $1 AND subject_id = $2
			ORDER BY check_in_at
		`
		args = append(args, string(subjectID))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance events: %w", err)
	}
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		var event attendance.Event
		var student, subject string

		if err := rows.Scan(&student, &subject, &event.Present, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}

		event.StudentID = shared.StudentID(student)
		event.SubjectID = shared.SubjectID(subject)
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByStudent returns the number of events recorded for a student.
func (s *AttendanceStore) CountByStudent(ctx context.Context, studentID shared.StudentID) (int, error) {
	var count int
	err := s.conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance_events WHERE student_id = $1
	`, string(studentID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance events: %w", err)
	}
	return count, nil
}
