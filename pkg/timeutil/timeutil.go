// Package timeutil provides calendar-day utilities for the Engagement Hub.
// Attendance streaks, daily challenge windows, and leaderboard periods are all
// defined in terms of UTC calendar days, so every derived computation goes
// through the helpers here instead of doing its own date math.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Day represents a single UTC calendar day (midnight-truncated).
type Day struct {
	t time.Time
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return Day{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Time returns the midnight timestamp of the day.
func (d Day) Time() time.Time {
	return d.t
}

// IsZero reports whether the day is the zero value.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether two days are the same calendar day.
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// Next returns the immediately following calendar day.
func (d Day) Next() Day {
	return Day{t: d.t.AddDate(0, 0, 1)}
}

// DaysUntil returns the number of whole calendar days from d to other.
// Negative if other is earlier.
func (d Day) DaysUntil(other Day) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	if d.t.IsZero() {
		return "none"
	}
	return d.t.Format("2006-01-02")
}

// StartOfDay returns midnight UTC of the day containing t.
func StartOfDay(t time.Time) time.Time {
	return DayOf(t).Time()
}

// EndOfDay returns the last nanosecond of the day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns Monday 00:00:00 UTC of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// DaysBetween returns the number of whole calendar days between two timestamps.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return DayOf(a).DaysUntil(DayOf(b))
}

// UniqueDays collapses a chronologically ordered list of timestamps into the
// distinct calendar days they cover, preserving order.
func UniqueDays(timestamps []time.Time) []Day {
	days := make([]Day, 0, len(timestamps))
	for _, ts := range timestamps {
		day := DayOf(ts)
		if len(days) > 0 && days[len(days)-1].Equal(day) {
			continue
		}
		days = append(days, day)
	}
	return days
}

// FormatClock renders a number of seconds as M:SS, the format used by the
// challenge countdown surface.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
