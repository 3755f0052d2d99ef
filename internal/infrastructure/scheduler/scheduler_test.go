package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts executions" }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	config := DefaultSchedulerConfig()
	config.TickInterval = 5 * time.Millisecond
	return NewScheduler(config)
}

func TestSchedulerRegisterRejectsDuplicates(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "rebuild_leaderboard"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	err := s.Register(job, NewIntervalSchedule(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestSchedulerRegisterValidation(t *testing.T) {
	s := newTestScheduler(t)

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "expire_challenges"}, nil), ErrNilSchedule)
}

func TestSchedulerRunsDueJobs(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "expire_challenges"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	info, err := s.GetJobInfo("expire_challenges")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.RunCount, int64(2))
	assert.Equal(t, int64(0), info.FailCount)
}

func TestSchedulerStartIsIdempotentGuarded(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	assert.False(t, s.IsRunning())
}

func TestSchedulerRunNow(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "prune_snapshots"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "prune_snapshots")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Manual)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSchedulerRecordsFailures(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "rebuild_leaderboard", err: errors.New("snapshot store unavailable")}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "rebuild_leaderboard")
	require.Error(t, err)
	assert.False(t, result.Success)

	history := s.GetHistory(10)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)

	snapshot := s.GetMetrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalFailures)
}
