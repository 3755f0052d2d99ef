// Package service contains glue adapters that sit between domain
// packages without belonging to any single one of them.
package service

import (
	"context"
	"time"

	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/pkg/timeutil"
)

// earlyCheckInHour is the UTC hour before which a check-in counts as early.
const earlyCheckInHour = 9

// StatsAdapter assembles a gamification.EvaluationContext from the
// attendance side and the stored quiz counters. It implements
// gamification.StatsSource.
//
// TotalXP and Level are left zero on purpose: the engine overwrites
// them from the ledger it is evaluating.
type StatsAdapter struct {
	store     attendance.EventStore
	tracker   *attendance.Tracker
	quizStats gamification.QuizStatsRepository
	clock     shared.Clock
}

// NewStatsAdapter creates a StatsAdapter. quizStats may be nil, in
// which case quiz-related fields stay zero.
func NewStatsAdapter(store attendance.EventStore, tracker *attendance.Tracker, quizStats gamification.QuizStatsRepository, clock shared.Clock) *StatsAdapter {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &StatsAdapter{
		store:     store,
		tracker:   tracker,
		quizStats: quizStats,
		clock:     clock,
	}
}

// Evaluation builds the snapshot used by achievement predicates.
func (s *StatsAdapter) Evaluation(ctx context.Context, studentID shared.StudentID) (gamification.EvaluationContext, error) {
	var evalCtx gamification.EvaluationContext

	events, err := s.store.EventsByStudent(ctx, studentID, "")
	if err != nil {
		return evalCtx, shared.WrapError("service", "Evaluation", shared.ErrExternalService, "attendance read failed", err)
	}

	now := s.clock.Now().UTC()
	summary := attendance.Summarize(studentID, "", events)
	evalCtx.AttendancePercentage = summary.Percentage
	evalCtx.EarlyCheckIns = countEarlyCheckIns(events)
	evalCtx.WeekFullyAttended = weekFullyAttended(events, now)

	if s.tracker != nil {
		streak, err := s.tracker.Streak(ctx, studentID)
		if err != nil {
			return evalCtx, err
		}
		evalCtx.CurrentStreak = streak.CurrentStreak
		evalCtx.BestStreak = streak.BestStreak
	}

	if s.quizStats != nil {
		stats, err := s.quizStats.QuizStats(ctx, studentID)
		if err != nil {
			return evalCtx, err
		}
		evalCtx.QuizzesTaken = stats.QuizzesTaken
		evalCtx.PerfectQuizzes = stats.PerfectQuizzes
	}

	return evalCtx, nil
}

// countEarlyCheckIns counts attended events checked in before
// earlyCheckInHour UTC.
func countEarlyCheckIns(events []attendance.Event) int {
	n := 0
	for _, e := range events {
		if e.Present && e.Timestamp.UTC().Hour() < earlyCheckInHour {
			n++
		}
	}
	return n
}

// weekFullyAttended reports whether every weekday of the current week,
// from Monday up to and including now, has at least one attended event.
// Weekends do not count against the student. Before Monday has fully
// elapsed a single attended Monday already qualifies, which matches how
// the perfect-week achievement is re-checked on every award anyway.
func weekFullyAttended(events []attendance.Event, now time.Time) bool {
	weekStart := timeutil.StartOfWeek(now)
	attended := make(map[timeutil.Day]bool)
	for _, e := range events {
		ts := e.Timestamp.UTC()
		if e.Present && !ts.Before(weekStart) {
			attended[timeutil.DayOf(ts)] = true
		}
	}

	checked := false
	for d := weekStart; !d.After(now); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if !attended[timeutil.DayOf(d)] {
			return false
		}
		checked = true
	}
	return checked
}
