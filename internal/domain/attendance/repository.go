package attendance

import (
	"context"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// EventStore defines the contract for persisting attendance events.
// Implementations live in the infrastructure layer (PostgreSQL, in-memory).
//
// The store is append-only: there is no update or delete. Ordering
// enforcement (strictly increasing timestamps per student and subject) is
// done by the Ledger under its per-key lock; the store only reports the
// last recorded timestamp.
type EventStore interface {
	// Append stores a new attendance event.
	Append(ctx context.Context, event Event) error

	// LastTimestamp returns the timestamp of the most recent event for the
	// (student, subject) pair. ok is false when no event exists yet.
	LastTimestamp(ctx context.Context, studentID shared.StudentID, subjectID shared.SubjectID) (ts time.Time, ok bool, err error)

	// EventsByStudent returns all events for a student in chronological
	// order. An empty subjectID returns events across all subjects.
	EventsByStudent(ctx context.Context, studentID shared.StudentID, subjectID shared.SubjectID) ([]Event, error)

	// CountByStudent returns the number of events recorded for a student.
	// Used as the cache-invalidation watermark by the streak tracker.
	CountByStudent(ctx context.Context, studentID shared.StudentID) (int, error)
}

// Roster is the institution's source of truth for which students and
// subjects exist. The ledger consults it before accepting an event; it is
// an external collaborator, typically backed by the campus SIS.
type Roster interface {
	// KnowsStudent reports whether the student exists on the roster.
	KnowsStudent(ctx context.Context, studentID shared.StudentID) (bool, error)

	// KnowsSubject reports whether the subject exists on the roster.
	KnowsSubject(ctx context.Context, subjectID shared.SubjectID) (bool, error)
}
