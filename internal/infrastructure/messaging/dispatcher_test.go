package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	config := DefaultDispatcherConfig(nil)
	config.RetryConfig = RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	d := NewDispatcher(config)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestDispatcherRoutesToRegisteredHandler(t *testing.T) {
	d := newTestDispatcher(t)

	var calls int32
	err := d.RegisterSync(shared.EventXPGained, "xp_counter", func(event shared.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewXPGainedEvent("stu-1", 150, 150, "challenge")
	require.NoError(t, d.Dispatch(event))
	require.NoError(t, d.Dispatch(event))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(2), d.Metrics().Snapshot().TotalDispatched)
}

func TestDispatcherIgnoresUnregisteredEventTypes(t *testing.T) {
	d := newTestDispatcher(t)

	require.NoError(t, d.RegisterSync(shared.EventXPGained, "xp_counter", func(shared.Event) error {
		t.Fatal("handler should not run for other event types")
		return nil
	}))

	err := d.Dispatch(shared.NewStreakUpdatedEvent("stu-1", 4, 9))
	assert.NoError(t, err)
}

func TestDispatcherRejectsInvalidRegistration(t *testing.T) {
	d := newTestDispatcher(t)

	assert.Error(t, d.RegisterSync(shared.EventXPGained, "no_handler", nil))
	assert.Error(t, d.RegisterHandler(shared.EventXPGained, HandlerRegistration{
		Handler: func(shared.Event) error { return nil },
	}))
}

func TestDispatcherRunsHandlersInPriorityOrder(t *testing.T) {
	d := newTestDispatcher(t)

	var mu sync.Mutex
	var order []string
	record := func(name string) shared.EventHandler {
		return func(shared.Event) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	require.NoError(t, d.RegisterHandler(shared.EventAttendanceRecorded, HandlerRegistration{
		Name: "award_xp", Handler: record("award_xp"), Priority: 1,
	}))
	require.NoError(t, d.RegisterHandler(shared.EventAttendanceRecorded, HandlerRegistration{
		Name: "validate", Handler: record("validate"), Priority: 10,
	}))

	event := shared.NewAttendanceRecordedEvent("stu-1", "go-201", true, true, time.Now())
	require.NoError(t, d.Dispatch(event))

	assert.Equal(t, []string{"validate", "award_xp"}, order)
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	d := newTestDispatcher(t)

	var attempts int32
	require.NoError(t, d.RegisterSync(shared.EventXPGained, "flaky", func(shared.Event) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient store error")
		}
		return nil
	}))

	err := d.Dispatch(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance"))

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, int64(1), d.Metrics().Snapshot().RetrySuccesses)
}

func TestDispatcherSendsExhaustedEventsToDeadLetterQueue(t *testing.T) {
	d := newTestDispatcher(t)

	require.NoError(t, d.RegisterSync(shared.EventChallengeSubmitted, "broken", func(shared.Event) error {
		return errors.New("store unavailable")
	}))

	event := shared.NewChallengeSubmittedEvent("sess-1", "stu-1", 4, 5, 600)
	err := d.Dispatch(event)
	require.Error(t, err)

	dlq := d.DeadLetterQueue()
	require.Equal(t, 1, dlq.Size())

	entry, ok := dlq.Pop()
	require.True(t, ok)
	assert.Equal(t, "broken", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, shared.EventChallengeSubmitted, entry.Event.EventType())
	assert.Equal(t, 0, dlq.Size())
}

func TestDispatcherRecoversFromHandlerPanic(t *testing.T) {
	d := newTestDispatcher(t)

	require.NoError(t, d.RegisterSync(shared.EventXPGained, "panicky", func(shared.Event) error {
		panic("nil map write")
	}))

	err := d.Dispatch(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDeadLetterQueueEvictsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)

	for i, name := range []string{"first", "second", "third"} {
		q.Add(DeadLetterEntry{
			Event:       shared.NewXPGainedEvent("stu-1", i, i, "attendance"),
			HandlerName: name,
		})
	}

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].HandlerName)
	assert.Equal(t, "third", entries[1].HandlerName)
}
