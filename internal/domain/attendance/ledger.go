package attendance

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// stripeCount is the number of lock stripes used to serialize appends per
// (student, subject) key. Writes for different keys proceed independently.
const stripeCount = 64

// Ledger is the append-only attendance ledger. It owns AttendanceEvents
// exclusively: every event enters the system through Record, which enforces
// roster membership and the strictly-increasing-timestamp invariant.
type Ledger struct {
	store  EventStore
	roster Roster

	stripes [stripeCount]sync.Mutex
}

// NewLedger creates a Ledger over the given store and roster.
func NewLedger(store EventStore, roster Roster) *Ledger {
	return &Ledger{store: store, roster: roster}
}

// stripeFor picks the lock stripe for a (student, subject) key.
func (l *Ledger) stripeFor(studentID shared.StudentID, subjectID shared.SubjectID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(studentID))
	h.Write([]byte{0})
	h.Write([]byte(subjectID))
	return &l.stripes[h.Sum32()%stripeCount]
}

// Record validates and appends an attendance event.
//
// Rejections (no state is mutated on any of them):
//   - shared.ErrInvalidEvent when the event's own fields are malformed
//   - shared.ErrUnknownStudent / shared.ErrUnknownSubject when the roster
//     does not know the IDs
//   - shared.ErrEventOutOfOrder when the timestamp is not strictly greater
//     than the last recorded one for the same (student, subject)
func (l *Ledger) Record(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return shared.WrapError("attendance", "Record", shared.ErrValidation, "invalid attendance event", err)
	}

	known, err := l.roster.KnowsStudent(ctx, event.StudentID)
	if err != nil {
		return shared.WrapError("attendance", "Record", shared.ErrServiceUnavailable, "roster lookup failed", err)
	}
	if !known {
		return shared.ErrUnknownStudent
	}

	known, err = l.roster.KnowsSubject(ctx, event.SubjectID)
	if err != nil {
		return shared.WrapError("attendance", "Record", shared.ErrServiceUnavailable, "roster lookup failed", err)
	}
	if !known {
		return shared.ErrUnknownSubject
	}

	// The ordering check and the append must happen under the same lock so
	// concurrent writers for one (student, subject) key cannot interleave.
	mu := l.stripeFor(event.StudentID, event.SubjectID)
	mu.Lock()
	defer mu.Unlock()

	last, ok, err := l.store.LastTimestamp(ctx, event.StudentID, event.SubjectID)
	if err != nil {
		return shared.WrapError("attendance", "Record", shared.ErrExternalService, "event store lookup failed", err)
	}
	if ok && !event.Timestamp.After(last) {
		return shared.ErrEventOutOfOrder
	}

	if err := l.store.Append(ctx, event); err != nil {
		return shared.WrapError("attendance", "Record", shared.ErrExternalService, "event store append failed", err)
	}
	return nil
}

// Summary returns the attendance aggregate for a student. An empty
// subjectID aggregates across all subjects the student has events for.
// Pure read - no side effects.
func (l *Ledger) Summary(ctx context.Context, studentID shared.StudentID, subjectID shared.SubjectID) (Summary, error) {
	events, err := l.store.EventsByStudent(ctx, studentID, subjectID)
	if err != nil {
		return Summary{}, shared.WrapError("attendance", "Summarize", shared.ErrExternalService, "event store read failed", err)
	}
	return Summarize(studentID, subjectID, events), nil
}
