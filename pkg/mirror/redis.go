package mirror

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/urmzd/telemetry-hub/pkg/event"
)

// DefaultChannel is the pub/sub channel broadcast payloads are mirrored to.
const DefaultChannel = "telemetry:events"

// Redis mirrors every broadcast payload to a Redis pub/sub channel so that
// processes outside the hub can follow the stream.
// It is safe for concurrent use.
type Redis struct {
	rdb     *redis.Client
	channel string
}

// NewRedis creates a mirror publishing to channel, or DefaultChannel when empty.
func NewRedis(opts *redis.Options, channel string) (*Redis, error) {
	if opts == nil || opts.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rdb: redis.NewClient(opts), channel: channel}, nil
}

// Channel returns the channel payloads are published to.
func (r *Redis) Channel() string {
	return r.channel
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Publish implements broadcast.Sink.
func (r *Redis) Publish(ctx context.Context, kind event.Kind, payload []byte) error {
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}
	return nil
}

// Subscription delivers mirrored payloads until Close is called or its
// context is cancelled.
type Subscription struct {
	Payloads <-chan []byte
	cancel   context.CancelFunc
}

// Close stops the subscription.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe follows the mirror channel.
func (r *Redis) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	payloads := make(chan []byte, 64)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(payloads)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case payloads <- []byte(msg.Payload):
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{Payloads: payloads, cancel: cancel}, nil
}
