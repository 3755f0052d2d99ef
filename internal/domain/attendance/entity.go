// Package attendance contains the attendance ledger domain: append-only
// check-in events, derived summaries, and consecutive-day streak tracking.
// Events are the primary facts of the engagement engine; everything else
// derived from them is a recomputable cache.
package attendance

import (
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

// Domain errors for the attendance package.
var (
	ErrInvalidStudentID  = errors.New("attendance: invalid student ID")
	ErrInvalidSubjectID  = errors.New("attendance: invalid subject ID")
	ErrZeroTimestamp     = errors.New("attendance: timestamp is required")
	ErrTimestampNotAfter = errors.New("attendance: timestamp must be strictly after the last recorded event")
)

// Event represents one class-session check-in. Events are immutable once
// recorded; corrections are modeled as new events, never edits.
type Event struct {
	StudentID shared.StudentID
	SubjectID shared.SubjectID
	Timestamp time.Time
	Present   bool
}

// NewEvent creates a validated attendance event.
func NewEvent(studentID shared.StudentID, subjectID shared.SubjectID, timestamp time.Time, present bool) (Event, error) {
	e := Event{
		StudentID: studentID,
		SubjectID: subjectID,
		Timestamp: timestamp.UTC(),
		Present:   present,
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate checks the event's own fields. Ordering against previously
// recorded events is the Ledger's concern, not the event's.
func (e Event) Validate() error {
	if !e.StudentID.IsValid() {
		return ErrInvalidStudentID
	}
	if !e.SubjectID.IsValid() {
		return ErrInvalidSubjectID
	}
	if e.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// Summary is the derived attendance aggregate for a student, either for a
// single subject or across all subjects.
type Summary struct {
	StudentID  shared.StudentID
	SubjectID  shared.SubjectID // empty when aggregated across subjects
	Attended   int
	Total      int
	Percentage shared.Percentage
}

// Summarize folds a list of events into a Summary. Pure function.
func Summarize(studentID shared.StudentID, subjectID shared.SubjectID, events []Event) Summary {
	s := Summary{StudentID: studentID, SubjectID: subjectID}
	for _, e := range events {
		s.Total++
		if e.Present {
			s.Attended++
		}
	}
	s.Percentage = shared.RatioPercentage(s.Attended, s.Total)
	return s
}
