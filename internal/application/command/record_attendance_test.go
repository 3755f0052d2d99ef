package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/external/roster"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func newAttendanceHandler(clock shared.Clock, publisher shared.EventPublisher) *RecordAttendanceHandler {
	store := memory.NewAttendanceStore()
	ledger := attendance.NewLedger(store, roster.NewPermissive())
	tracker := attendance.NewTracker(store, clock)
	return NewRecordAttendanceHandler(ledger, tracker, clock, publisher)
}

func TestRecordAttendance_ExtendsStreakAcrossDays(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	publisher := &capturingPublisher{}
	handler := newAttendanceHandler(clock, publisher)
	ctx := context.Background()

	result, err := handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "stu-1", SubjectID: "math", Present: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CurrentStreak)

	clock.Advance(24 * time.Hour)
	result, err = handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "stu-1", SubjectID: "math", Present: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CurrentStreak)
	assert.True(t, result.StreakExtended)
	assert.Len(t, publisher.byType(shared.EventStreakUpdated), 2)
}

func TestRecordAttendance_StreakBrokenReportsCalendarDaysMissed(t *testing.T) {
	// Check-ins at arbitrary in-day times; the gap is measured in calendar
	// days, not 24h buckets.
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	publisher := &capturingPublisher{}
	handler := newAttendanceHandler(clock, publisher)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "stu-1", SubjectID: "math", Present: true,
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "stu-1", SubjectID: "math", Present: true,
		Timestamp: time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The run of 2 is still alive on March 3; a check-in dated March 5
	// skips March 3 and 4 entirely.
	clock.Instant = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	result, err := handler.Handle(ctx, RecordAttendanceCommand{
		StudentID: "stu-1", SubjectID: "math", Present: true,
		Timestamp: time.Date(2025, 3, 5, 1, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, result.StreakBroken)
	assert.Equal(t, 2, result.PreviousStreak)
	assert.Equal(t, 1, result.CurrentStreak)

	broken := publisher.byType(shared.EventStreakBroken)
	require.Len(t, broken, 1)
	assert.Equal(t, 2, broken[0].Payload()["days_missed"])
	assert.Equal(t, 2, broken[0].Payload()["previous_streak"])
}

func TestRecordAttendance_RejectsInvalidCommand(t *testing.T) {
	clock := &shared.FixedClock{Instant: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	handler := newAttendanceHandler(clock, nil)

	_, err := handler.Handle(context.Background(), RecordAttendanceCommand{SubjectID: "math"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}
