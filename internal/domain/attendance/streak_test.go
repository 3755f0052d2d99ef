package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC)
}

func TestFoldStreak_ConsecutiveDays(t *testing.T) {
	attended := []time.Time{day(1), day(2), day(3)}

	state := FoldStreak("s1", attended, day(3))

	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), state.LastCountedDate)
}

func TestFoldStreak_GapResetsCurrentNotBest(t *testing.T) {
	// Days 1,2,3 then a gap on day 4 then attendance on day 5.
	attended := []time.Time{day(1), day(2), day(3), day(5)}

	state := FoldStreak("s1", attended, day(5))

	assert.Equal(t, 1, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
}

func TestFoldStreak_BrokenByElapsedDays(t *testing.T) {
	attended := []time.Time{day(1), day(2), day(3)}

	// Recomputed on day 5: day 4 passed with no attendance.
	state := FoldStreak("s1", attended, day(5))

	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 3, state.BestStreak)
}

func TestFoldStreak_SurvivesThroughNextDay(t *testing.T) {
	attended := []time.Time{day(1), day(2), day(3)}

	// Recomputed during day 4: the student can still attend today.
	state := FoldStreak("s1", attended, day(4))

	assert.Equal(t, 3, state.CurrentStreak)
}

func TestFoldStreak_MultipleEventsSameDayCountOnce(t *testing.T) {
	attended := []time.Time{
		day(1),
		day(1).Add(2 * time.Hour),
		day(1).Add(5 * time.Hour),
		day(2),
	}

	state := FoldStreak("s1", attended, day(2))

	assert.Equal(t, 2, state.CurrentStreak)
	assert.Equal(t, 2, state.BestStreak)
}

func TestFoldStreak_NoEvents(t *testing.T) {
	state := FoldStreak("s1", nil, day(1))

	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 0, state.BestStreak)
	assert.True(t, state.LastCountedDate.IsZero())
}

func TestTracker_CachesUntilNewEvents(t *testing.T) {
	store := newFakeStore()
	clock := &shared.FixedClock{Instant: day(2)}
	tracker := NewTracker(store, clock)

	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(1), Present: true})
	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(2), Present: true})

	state, err := tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 2, state.CurrentStreak)
	assert.Equal(t, 1, store.readCalls)

	// Cached: same watermark and same day, no re-scan.
	_, err = tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 1, store.readCalls)

	// A new event invalidates the watermark.
	clock.Advance(24 * time.Hour)
	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(3), Present: true})
	state, err = tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 3, state.CurrentStreak)
	assert.Equal(t, 2, store.readCalls)
}

func TestTracker_DayRolloverInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	clock := &shared.FixedClock{Instant: day(3)}
	tracker := NewTracker(store, clock)

	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(3), Present: true})

	state, err := tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 1, state.CurrentStreak)

	// Two days later with no new events the run is discovered broken even
	// though the event count is unchanged.
	clock.Advance(48 * time.Hour)
	state, err = tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 0, state.CurrentStreak)
	assert.Equal(t, 1, state.BestStreak)
}

func TestFoldStreak_AbsencesDoNotCount(t *testing.T) {
	store := newFakeStore()
	clock := &shared.FixedClock{Instant: day(2)}
	tracker := NewTracker(store, clock)

	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(1), Present: true})
	store.add(Event{StudentID: "s1", SubjectID: "cs-201", Timestamp: day(2), Present: false})

	state, err := tracker.Streak(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, 1, state.CurrentStreak)
}
