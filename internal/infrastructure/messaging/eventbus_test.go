package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	config := DefaultInMemoryEventBusConfig()
	config.AsyncMode = false
	return NewInMemoryEventBus(config)
}

func TestInMemoryEventBusDeliversToTypeSubscribers(t *testing.T) {
	bus := newSyncBus()

	var xpEvents, streakEvents int32
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error {
		atomic.AddInt32(&xpEvents, 1)
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(shared.Event) error {
		atomic.AddInt32(&streakEvents, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance")))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("stu-1", 150, 175, "challenge")))

	assert.Equal(t, int32(2), atomic.LoadInt32(&xpEvents))
	assert.Equal(t, int32(0), atomic.LoadInt32(&streakEvents))
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().TotalPublished)
}

func TestInMemoryEventBusGlobalSubscriberSeesEverything(t *testing.T) {
	bus := newSyncBus()

	var seen []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(event shared.Event) error {
		seen = append(seen, event.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance")))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("stu-1", 3, 7)))

	assert.Equal(t, []shared.EventType{shared.EventXPGained, shared.EventStreakUpdated}, seen)
}

func TestInMemoryEventBusRejectsAfterClose(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventXPGained, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Second close is a no-op.
	assert.NoError(t, bus.Close())
}

// fakeRedisClient loops published messages back to the subscriber,
// standing in for a Redis Pub/Sub channel shared by two instances.
type fakeRedisClient struct {
	messages chan RedisMessage
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{messages: make(chan RedisMessage, 16)}
}

func (c *fakeRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	c.messages <- RedisMessage{Channel: channel, Payload: message.(string)}
	return nil
}

func (c *fakeRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	return c.messages, nil
}

func (c *fakeRedisClient) Close() error { return nil }

func TestRedisEventBusFiltersOwnEvents(t *testing.T) {
	client := newFakeRedisClient()

	localConfig := DefaultInMemoryEventBusConfig()
	localConfig.AsyncMode = false

	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:         client,
		InstanceID:     "api-1",
		LocalBusConfig: localConfig,
	})
	require.NoError(t, err)
	defer func() { _ = bus.Close() }()

	var handled int32
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}))

	// The loopback delivers this instance's own envelope back; it must
	// not be handled a second time.
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("stu-1", 25, 25, "attendance")))

	assert.Never(t, func() bool {
		return atomic.LoadInt32(&handled) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&handled))
}

func TestRedisEventBusHandlesRemoteEvents(t *testing.T) {
	client := newFakeRedisClient()

	localConfig := DefaultInMemoryEventBusConfig()
	localConfig.AsyncMode = false

	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:         client,
		InstanceID:     "api-1",
		LocalBusConfig: localConfig,
	})
	require.NoError(t, err)
	defer func() { _ = bus.Close() }()

	received := make(chan shared.Event, 1)
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(event shared.Event) error {
		received <- event
		return nil
	}))

	// Envelope as another instance would publish it.
	client.messages <- RedisMessage{
		Channel: "campus-pulse:events",
		Payload: `{"instance_id":"api-2","event_type":"progress.xp_gained","aggregate_id":"stu-7","occurred_at":"2025-03-05T12:00:00Z","payload":{"amount":150}}`,
	}

	select {
	case event := <-received:
		assert.Equal(t, "stu-7", event.AggregateID())
		assert.Equal(t, float64(150), event.Payload()["amount"])
	case <-time.After(2 * time.Second):
		t.Fatal("remote event was not delivered")
	}
}

func TestRedisEventBusRequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}
