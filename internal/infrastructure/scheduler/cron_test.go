package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpressionRejectsMalformed(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"*/0 * * * *",
		"a * * * *",
	} {
		_, err := ParseCronExpression(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestCronExpressionNext(t *testing.T) {
	// Friday 2025-03-07 14:35 UTC
	from := time.Date(2025, 3, 7, 14, 35, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{CronEveryMinute, time.Date(2025, 3, 7, 14, 36, 0, 0, time.UTC)},
		{CronEvery10Minutes, time.Date(2025, 3, 7, 14, 40, 0, 0, time.UTC)},
		{CronEveryHour, time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)},
		{CronNightly, time.Date(2025, 3, 8, 3, 0, 0, 0, time.UTC)},
		{CronEveryMonday, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"15,45 * * * *", time.Date(2025, 3, 7, 14, 45, 0, 0, time.UTC)},
		{"0 9-17 * * *", time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)},
	}

	for _, tc := range tests {
		ce, err := ParseCronExpression(tc.expr)
		require.NoError(t, err, "expression %q", tc.expr)
		assert.Equal(t, tc.want, ce.Next(from), "expression %q", tc.expr)
	}
}

func TestIntervalScheduleNext(t *testing.T) {
	from := time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC)

	s := NewIntervalSchedule(10 * time.Minute)
	assert.Equal(t, from.Add(10*time.Minute), s.Next(from))
	assert.Equal(t, "@every 10m0s", s.String())

	jittered := NewIntervalScheduleWithJitter(10*time.Minute, time.Minute)
	next := jittered.Next(from)
	assert.False(t, next.Before(from.Add(10*time.Minute)))
	assert.True(t, next.Before(from.Add(11*time.Minute)))
}
