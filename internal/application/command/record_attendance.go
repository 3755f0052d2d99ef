// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ATTENDANCE COMMAND
// Appends a check-in event to the attendance ledger and reports the streak
// transition it caused. Everything downstream (XP, leaderboard staleness)
// reacts to the published events.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendanceCommand contains the data for one check-in.
type RecordAttendanceCommand struct {
	// StudentID is the student checking in.
	StudentID string

	// SubjectID is the class session's subject.
	SubjectID string

	// Timestamp is when the check-in happened (defaults to now if zero).
	Timestamp time.Time

	// Present is false for a recorded absence.
	Present bool

	// OnTime marks a check-in before the session start; grants the
	// punctuality XP bonus.
	OnTime bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordAttendanceCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("record_attendance: student_id is required")
	}
	if c.SubjectID == "" {
		return errors.New("record_attendance: subject_id is required")
	}
	return nil
}

// RecordAttendanceResult contains the outcome of a check-in.
type RecordAttendanceResult struct {
	StudentID      string
	SubjectID      string
	RecordedAt     time.Time
	CurrentStreak  int
	BestStreak     int
	StreakExtended bool
	StreakBroken   bool
	PreviousStreak int
}

// RecordAttendanceHandler handles the RecordAttendanceCommand.
type RecordAttendanceHandler struct {
	ledger         *attendance.Ledger
	tracker        *attendance.Tracker
	clock          shared.Clock
	eventPublisher shared.EventPublisher
}

// NewRecordAttendanceHandler creates a new RecordAttendanceHandler.
func NewRecordAttendanceHandler(
	ledger *attendance.Ledger,
	tracker *attendance.Tracker,
	clock shared.Clock,
	eventPublisher shared.EventPublisher,
) *RecordAttendanceHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &RecordAttendanceHandler{
		ledger:         ledger,
		tracker:        tracker,
		clock:          clock,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the record attendance command.
func (h *RecordAttendanceHandler) Handle(ctx context.Context, cmd RecordAttendanceCommand) (*RecordAttendanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("attendance", "RecordAttendance", shared.ErrValidation, "invalid command", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = h.clock.Now()
	}

	event, err := attendance.NewEvent(
		shared.StudentID(cmd.StudentID),
		shared.SubjectID(cmd.SubjectID),
		timestamp,
		cmd.Present,
	)
	if err != nil {
		return nil, shared.WrapError("attendance", "RecordAttendance", shared.ErrValidation, "invalid event", err)
	}

	before, err := h.tracker.Streak(ctx, event.StudentID)
	if err != nil {
		return nil, err
	}

	if err := h.ledger.Record(ctx, event); err != nil {
		return nil, err
	}

	after, err := h.tracker.Streak(ctx, event.StudentID)
	if err != nil {
		return nil, err
	}

	result := &RecordAttendanceResult{
		StudentID:     cmd.StudentID,
		SubjectID:     cmd.SubjectID,
		RecordedAt:    event.Timestamp,
		CurrentStreak: after.CurrentStreak,
		BestStreak:    after.BestStreak,
	}

	recorded := shared.NewAttendanceRecordedEvent(cmd.StudentID, cmd.SubjectID, cmd.Present, cmd.OnTime, event.Timestamp)
	if cmd.CorrelationID != "" {
		recorded.BaseEvent = recorded.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	h.publish(recorded)

	switch {
	case after.CurrentStreak > before.CurrentStreak:
		result.StreakExtended = true
		h.publish(shared.NewStreakUpdatedEvent(cmd.StudentID, after.CurrentStreak, after.BestStreak))
	case after.CurrentStreak < before.CurrentStreak:
		result.StreakBroken = true
		result.PreviousStreak = before.CurrentStreak
		daysMissed := 0
		if !before.LastCountedDate.IsZero() {
			daysMissed = timeutil.DaysBetween(before.LastCountedDate, event.Timestamp) - 1
		}
		h.publish(shared.NewStreakBrokenEvent(cmd.StudentID, before.CurrentStreak, daysMissed))
	}

	return result, nil
}

func (h *RecordAttendanceHandler) publish(event shared.Event) {
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}
}
