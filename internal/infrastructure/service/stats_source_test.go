package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
)

func mustRecord(t *testing.T, store attendance.EventStore, studentID string, ts time.Time, present bool) {
	t.Helper()
	ev, err := attendance.NewEvent(shared.StudentID(studentID), "algebra", ts, present)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), ev))
}

func TestStatsAdapterEvaluation(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}

	store := memory.NewAttendanceStore()
	tracker := attendance.NewTracker(store, clock)
	quiz := memory.NewGamificationRepo()
	adapter := NewStatsAdapter(store, tracker, quiz, clock)

	// Mon, Tue, Wed of the current week, the Monday one early.
	mustRecord(t, store, "stud-1", time.Date(2025, 3, 3, 8, 30, 0, 0, time.UTC), true)
	mustRecord(t, store, "stud-1", time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), true)
	mustRecord(t, store, "stud-1", now, true)

	require.NoError(t, quiz.RecordQuizResult(context.Background(), "stud-1", 5, 5, true))
	require.NoError(t, quiz.RecordQuizResult(context.Background(), "stud-1", 5, 3, false))

	evalCtx, err := adapter.Evaluation(context.Background(), "stud-1")
	require.NoError(t, err)

	assert.Equal(t, 3, evalCtx.CurrentStreak)
	assert.Equal(t, 3, evalCtx.BestStreak)
	assert.Equal(t, shared.Percentage(100), evalCtx.AttendancePercentage)
	assert.True(t, evalCtx.WeekFullyAttended)
	assert.Equal(t, 1, evalCtx.EarlyCheckIns)
	assert.Equal(t, 2, evalCtx.QuizzesTaken)
	assert.Equal(t, 1, evalCtx.PerfectQuizzes)

	// Engine owns these.
	assert.Zero(t, evalCtx.TotalXP)
	assert.Zero(t, evalCtx.Level)
}

func TestStatsAdapterWeekNotFullyAttended(t *testing.T) {
	// Wednesday, with Tuesday missing entirely.
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}

	store := memory.NewAttendanceStore()
	adapter := NewStatsAdapter(store, attendance.NewTracker(store, clock), nil, clock)

	mustRecord(t, store, "stud-2", time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), true)
	mustRecord(t, store, "stud-2", now, true)

	evalCtx, err := adapter.Evaluation(context.Background(), "stud-2")
	require.NoError(t, err)
	assert.False(t, evalCtx.WeekFullyAttended)
	assert.Equal(t, 1, evalCtx.CurrentStreak)
}

func TestStatsAdapterAbsenceDoesNotCountAsEarly(t *testing.T) {
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	clock := &shared.FixedClock{Instant: now}

	store := memory.NewAttendanceStore()
	adapter := NewStatsAdapter(store, attendance.NewTracker(store, clock), nil, clock)

	mustRecord(t, store, "stud-3", time.Date(2025, 3, 5, 7, 0, 0, 0, time.UTC), false)

	evalCtx, err := adapter.Evaluation(context.Background(), "stud-3")
	require.NoError(t, err)
	assert.Zero(t, evalCtx.EarlyCheckIns)
	assert.False(t, evalCtx.WeekFullyAttended)
	assert.Equal(t, shared.Percentage(0), evalCtx.AttendancePercentage)
}
