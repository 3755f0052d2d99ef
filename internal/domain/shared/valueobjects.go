// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// StudentID represents a unique student identifier issued by the institution.
type StudentID string

// IsValid checks if the student ID is non-empty and free of whitespace.
func (s StudentID) IsValid() bool {
	str := string(s)
	return str != "" && !strings.ContainsAny(str, " \t\n\r")
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.TrimSpace(id))
	if !sid.IsValid() {
		return "", ErrInvalidID
	}
	return sid, nil
}

// SubjectID represents a course/subject identifier (e.g., "CS-201").
type SubjectID string

// IsValid checks if the subject ID is non-empty and free of whitespace.
func (s SubjectID) IsValid() bool {
	str := string(s)
	return str != "" && !strings.ContainsAny(str, " \t\n\r")
}

// String returns the string representation.
func (s SubjectID) String() string {
	return string(s)
}

// NewSubjectID creates a new SubjectID with validation.
func NewSubjectID(id string) (SubjectID, error) {
	sid := SubjectID(strings.TrimSpace(id))
	if !sid.IsValid() {
		return "", ErrInvalidID
	}
	return sid, nil
}

// GroupID represents a study group identifier.
type GroupID string

// IsValid checks if the group ID is non-empty.
func (g GroupID) IsValid() bool {
	return g != ""
}

// String returns the string representation.
func (g GroupID) String() string {
	return string(g)
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points. XP is monotonically non-decreasing per
// student - there are no XP deductions anywhere in the engine.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percentage represents a whole-number percentage in [0, 100].
type Percentage int

// IsValid checks that the percentage is within range.
func (p Percentage) IsValid() bool {
	return p >= 0 && p <= 100
}

// String returns the percentage formatted with a percent sign.
func (p Percentage) String() string {
	return fmt.Sprintf("%d%%", int(p))
}

// RatioPercentage computes round(part/total*100). Returns 0 when total is 0.
func RatioPercentage(part, total int) Percentage {
	if total <= 0 {
		return 0
	}
	// round half up, integer arithmetic
	return Percentage((part*100 + total/2) / total)
}

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock abstracts time.Now so deadline logic is testable. The engine never
// schedules timers; it only compares against the clock lazily.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a clock pinned to a settable instant, for tests.
type FixedClock struct {
	Instant time.Time
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time {
	return c.Instant
}

// Advance moves the pinned instant forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.Instant = c.Instant.Add(d)
}
