package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed interval, measured from the end
// of the previous run. Used for the leaderboard rebuild and the challenge
// expiry sweep, where drift between runs is acceptable.
type IntervalSchedule struct {
	Interval time.Duration

	// Jitter, when positive, spreads the next run inside [0, Jitter) to
	// avoid thundering-herd effects when several workers share a store.
	Jitter time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule without jitter.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// NewIntervalScheduleWithJitter creates an IntervalSchedule that adds a
// deterministic offset derived from the reference time.
func NewIntervalScheduleWithJitter(interval, jitter time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
		Jitter:   jitter,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	next := t.Add(s.Interval)
	if s.Jitter > 0 {
		offset := time.Duration(t.UnixNano()) % s.Jitter
		next = next.Add(offset)
	}
	return next
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	if s.Jitter > 0 {
		return fmt.Sprintf("@every %s (jitter %s)", s.Interval.String(), s.Jitter.String())
	}
	return fmt.Sprintf("@every %s", s.Interval.String())
}
