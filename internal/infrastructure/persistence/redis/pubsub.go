package redis

import (
	"context"

	"github.com/campus-pulse/engagement-hub/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// PubSubClient adapts Cache to messaging.RedisClient so the Redis event
// bus can ride on the same connection pool.
type PubSubClient struct {
	cache *Cache
}

// NewPubSubClient creates a new PubSubClient.
func NewPubSubClient(cache *Cache) *PubSubClient {
	return &PubSubClient{cache: cache}
}

// Publish publishes a message to a channel.
func (p *PubSubClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return p.cache.client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to channels and pumps messages into a channel of
// messaging.RedisMessage until ctx is cancelled.
func (p *PubSubClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := p.cache.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer sub.Close()
		src := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying connection pool.
func (p *PubSubClient) Close() error {
	return p.cache.Close()
}
