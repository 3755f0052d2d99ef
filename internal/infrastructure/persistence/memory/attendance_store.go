// Package memory contains in-process reference implementations of the
// domain repositories. They back the single-process host and the test
// suite, and they define the concurrency behavior the SQL-backed
// implementations must match.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// AttendanceStore is an in-memory attendance.EventStore. Events are kept
// per student in append order; per-key ordering is the Ledger's job, the
// store only persists.
type AttendanceStore struct {
	mu        sync.RWMutex
	byStudent map[shared.StudentID][]attendance.Event
}

// NewAttendanceStore creates an empty store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{
		byStudent: make(map[shared.StudentID][]attendance.Event),
	}
}

// Append implements attendance.EventStore.
func (s *AttendanceStore) Append(_ context.Context, event attendance.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStudent[event.StudentID] = append(s.byStudent[event.StudentID], event)
	return nil
}

// LastTimestamp implements attendance.EventStore.
func (s *AttendanceStore) LastTimestamp(_ context.Context, studentID shared.StudentID, subjectID shared.SubjectID) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	found := false
	for _, e := range s.byStudent[studentID] {
		if e.SubjectID == subjectID && e.Timestamp.After(last) {
			last = e.Timestamp
			found = true
		}
	}
	return last, found, nil
}

// EventsByStudent implements attendance.EventStore. Events are returned
// in timestamp order; an empty subjectID selects all subjects.
func (s *AttendanceStore) EventsByStudent(_ context.Context, studentID shared.StudentID, subjectID shared.SubjectID) ([]attendance.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.byStudent[studentID]
	out := make([]attendance.Event, 0, len(events))
	for _, e := range events {
		if subjectID == "" || e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// CountByStudent implements attendance.EventStore.
func (s *AttendanceStore) CountByStudent(_ context.Context, studentID shared.StudentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byStudent[studentID]), nil
}
