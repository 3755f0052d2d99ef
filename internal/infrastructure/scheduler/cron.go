package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed 5-field cron expression implementing the
// Schedule interface. It drives calendar-based jobs such as the nightly
// leaderboard snapshot pruning.
//
// Field order: minute hour day-of-month month day-of-week
// Examples:
//   - "*/10 * * * *" - every 10 minutes
//   - "0 3 * * *"    - every day at 03:00
//   - "0 0 * * 1"    - every Monday at midnight
type CronExpression struct {
	raw      string
	minutes  fieldSet // 0-59
	hours    fieldSet // 0-23
	days     fieldSet // 1-31
	months   fieldSet // 1-12
	weekdays fieldSet // 0-6 (0 = Sunday)
}

// fieldSet holds the allowed values of a single cron field.
type fieldSet map[int]struct{}

func (fs fieldSet) has(v int) bool {
	_, ok := fs[v]
	return ok
}

// Common cron expression presets.
const (
	CronEveryMinute    = "* * * * *"
	CronEvery10Minutes = "*/10 * * * *"
	CronEveryHour      = "0 * * * *"
	CronNightly        = "0 3 * * *"
	CronEveryMonday    = "0 0 * * 1"
)

// ParseCronExpression parses a cron expression string.
// Format: minute hour day-of-month month day-of-week
// Supports: *, */n, n, n-m, n-m/s, n,m,o
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}

	ce := &CronExpression{raw: expr}

	specs := []struct {
		field    string
		min, max int
		dst      *fieldSet
		name     string
	}{
		{fields[0], 0, 59, &ce.minutes, "minute"},
		{fields[1], 0, 23, &ce.hours, "hour"},
		{fields[2], 1, 31, &ce.days, "day"},
		{fields[3], 1, 12, &ce.months, "month"},
		{fields[4], 0, 6, &ce.weekdays, "weekday"},
	}
	for _, spec := range specs {
		set, err := parseCronField(spec.field, spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		*spec.dst = set
	}

	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for compile-time constants.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	return ce
}

// parseCronField parses a single cron field into its allowed values.
func parseCronField(field string, min, max int) (fieldSet, error) {
	set := make(fieldSet)

	add := func(v int) {
		if v >= min && v <= max {
			set[v] = struct{}{}
		}
	}

	// Comma lists may mix plain values, ranges, and steps
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimSpace(part)

		step := 1
		if strings.Contains(part, "/") {
			pieces := strings.SplitN(part, "/", 2)
			s, err := strconv.Atoi(pieces[1])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step value: %s", pieces[1])
			}
			step = s
			part = pieces[0]
		}

		start, end := min, max
		switch {
		case part == "*":
			// full range
		case strings.Contains(part, "-"):
			pieces := strings.SplitN(part, "-", 2)
			s, err := strconv.Atoi(pieces[0])
			if err != nil {
				return nil, fmt.Errorf("invalid range start: %s", pieces[0])
			}
			e, err := strconv.Atoi(pieces[1])
			if err != nil {
				return nil, fmt.Errorf("invalid range end: %s", pieces[1])
			}
			start, end = s, e
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			if v < min || v > max {
				return nil, fmt.Errorf("value out of range [%d-%d]: %d", min, max, v)
			}
			if step == 1 {
				add(v)
				continue
			}
			// "n/s" runs from n to the field maximum
			start = v
		}

		for i := start; i <= end; i += step {
			add(i)
		}
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no values in range [%d-%d]: %s", min, max, field)
	}
	return set, nil
}

// String returns the original cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next calculates the next time the cron expression matches after the
// given time. Matching is minute-granular.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Add(time.Minute).Truncate(time.Minute)

	// Bounded scan: one year of minutes covers every valid expression
	const maxIterations = 366 * 24 * 60
	for i := 0; i < maxIterations; i++ {
		if ce.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}

	return time.Time{}
}

// matches reports whether the given time satisfies every field.
func (ce *CronExpression) matches(t time.Time) bool {
	return ce.minutes.has(t.Minute()) &&
		ce.hours.has(t.Hour()) &&
		ce.days.has(t.Day()) &&
		ce.months.has(int(t.Month())) &&
		ce.weekdays.has(int(t.Weekday()))
}
