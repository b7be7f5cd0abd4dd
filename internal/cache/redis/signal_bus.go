package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmelo/crossarb/internal/domain"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub. Quote,
// opportunity, trade, and status events flow through it to the WebSocket hub.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription over the given channels and
// returns a read-only channel of raw payloads. The subscription and the
// returned channel are closed when the context is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channels ...string) (<-chan []byte, error) {
	pubsub := sb.rdb.Subscribe(ctx, channels...)

	// Receive the subscription confirmation before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
