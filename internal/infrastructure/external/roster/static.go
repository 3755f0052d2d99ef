package roster

import (
	"context"
	"sync"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATIC ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// Static is an in-memory roster backed by allow-lists. Used in
// deployments without a roster API and in tests.
type Static struct {
	mu       sync.RWMutex
	students map[shared.StudentID]struct{}
	subjects map[shared.SubjectID]struct{}
	allowAll bool
}

// NewStatic creates a roster from explicit allow-lists.
func NewStatic(students []shared.StudentID, subjects []shared.SubjectID) *Static {
	s := &Static{
		students: make(map[shared.StudentID]struct{}, len(students)),
		subjects: make(map[shared.SubjectID]struct{}, len(subjects)),
	}
	for _, id := range students {
		s.students[id] = struct{}{}
	}
	for _, id := range subjects {
		s.subjects[id] = struct{}{}
	}
	return s
}

// NewPermissive creates a roster that accepts every well-formed ID.
func NewPermissive() *Static {
	return &Static{allowAll: true}
}

// AddStudent adds a student to the allow-list.
func (s *Static) AddStudent(id shared.StudentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.students == nil {
		s.students = make(map[shared.StudentID]struct{})
	}
	s.students[id] = struct{}{}
}

// AddSubject adds a subject to the allow-list.
func (s *Static) AddSubject(id shared.SubjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subjects == nil {
		s.subjects = make(map[shared.SubjectID]struct{})
	}
	s.subjects[id] = struct{}{}
}

// KnowsStudent implements attendance.Roster.
func (s *Static) KnowsStudent(_ context.Context, studentID shared.StudentID) (bool, error) {
	if s.allowAll {
		return studentID.IsValid(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.students[studentID]
	return ok, nil
}

// KnowsSubject implements attendance.Roster.
func (s *Static) KnowsSubject(_ context.Context, subjectID shared.SubjectID) (bool, error) {
	if s.allowAll {
		return subjectID.IsValid(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subjects[subjectID]
	return ok, nil
}
