package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/pkg/timeutil"
)

// StreakState describes a student's consecutive-day attendance run.
// A day counts once no matter how many attended events it holds. Every
// missed calendar day breaks the streak - weekends and holidays are not
// special-cased; calendar awareness belongs to an external collaborator.
type StreakState struct {
	StudentID       shared.StudentID
	CurrentStreak   int
	BestStreak      int
	LastCountedDate time.Time // midnight UTC of the last counted day; zero if none
}

// FoldStreak folds chronologically ordered attended-event timestamps into a
// StreakState as of the given instant. Pure function.
//
// Rules:
//   - the first attended day starts a streak of 1
//   - a day immediately following the last counted day extends the streak
//   - any gap of one or more full days restarts the streak at 1
//   - if more than one full day has passed between the last counted day and
//     asOf, the current streak is 0 (the run is already broken)
//   - BestStreak never decreases
func FoldStreak(studentID shared.StudentID, attendedAt []time.Time, asOf time.Time) StreakState {
	state := StreakState{StudentID: studentID}

	var last timeutil.Day
	for _, day := range timeutil.UniqueDays(attendedAt) {
		switch {
		case last.IsZero():
			state.CurrentStreak = 1
		case last.DaysUntil(day) == 1:
			state.CurrentStreak++
		case last.DaysUntil(day) == 0:
			continue
		default:
			state.CurrentStreak = 1
		}
		if state.CurrentStreak > state.BestStreak {
			state.BestStreak = state.CurrentStreak
		}
		last = day
	}

	if !last.IsZero() {
		state.LastCountedDate = last.Time()
		// The run survives through the day after the last counted one; the
		// student can still attend today. Beyond that it is broken.
		if last.DaysUntil(timeutil.DayOf(asOf)) > 1 {
			state.CurrentStreak = 0
		}
	}
	return state
}

// Tracker derives streaks from the ledger. It holds only recomputable cache
// keyed by student, invalidated by an event-count watermark: a new event for
// the student, or a calendar-day rollover, forces a recompute on next read.
type Tracker struct {
	store EventStore
	clock shared.Clock

	mu    sync.RWMutex
	cache map[shared.StudentID]trackerEntry
}

type trackerEntry struct {
	state     StreakState
	watermark int
	day       timeutil.Day
}

// NewTracker creates a streak tracker over the given event store.
func NewTracker(store EventStore, clock shared.Clock) *Tracker {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Tracker{
		store: store,
		clock: clock,
		cache: make(map[shared.StudentID]trackerEntry),
	}
}

// Streak returns the student's current streak state, recomputing from the
// ledger when the cached value is stale.
func (t *Tracker) Streak(ctx context.Context, studentID shared.StudentID) (StreakState, error) {
	count, err := t.store.CountByStudent(ctx, studentID)
	if err != nil {
		return StreakState{}, shared.WrapError("attendance", "Streak", shared.ErrExternalService, "event store read failed", err)
	}
	today := timeutil.DayOf(t.clock.Now())

	t.mu.RLock()
	entry, ok := t.cache[studentID]
	t.mu.RUnlock()
	if ok && entry.watermark == count && entry.day.Equal(today) {
		return entry.state, nil
	}

	return t.Recompute(ctx, studentID)
}

// Recompute scans the student's attended events and rebuilds the streak
// state, refreshing the cache.
func (t *Tracker) Recompute(ctx context.Context, studentID shared.StudentID) (StreakState, error) {
	events, err := t.store.EventsByStudent(ctx, studentID, "")
	if err != nil {
		return StreakState{}, shared.WrapError("attendance", "Recompute", shared.ErrExternalService, "event store read failed", err)
	}

	attended := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.Present {
			attended = append(attended, e.Timestamp)
		}
	}

	now := t.clock.Now()
	state := FoldStreak(studentID, attended, now)

	t.mu.Lock()
	t.cache[studentID] = trackerEntry{
		state:     state,
		watermark: len(events),
		day:       timeutil.DayOf(now),
	}
	t.mu.Unlock()

	return state, nil
}
