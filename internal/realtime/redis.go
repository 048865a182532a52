package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the Redis pub/sub channel events travel on
const DefaultChannel = "jobboard:events"

// RedisBroker shares events between server instances through Redis pub/sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBroker creates a broker on channel, or DefaultChannel when empty.
func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{
		client:  client,
		channel: channel,
		logger:  log.With().Str("component", "broker").Str("channel", channel).Logger(),
	}
}

// Publish implements Broker.
func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(Stamp(evt))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe implements Broker. It returns once Redis has confirmed the subscription.
func (b *RedisBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	sub := newSubscription(out, func() {
		once.Do(func() { close(done) })
	})

	go func() {
		defer close(out)
		defer func() {
			if err := ps.Close(); err != nil {
				b.logger.Warn().Err(err).Msg("failed to close subscription")
			}
		}()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Error().Err(err).Msg("failed to unmarshal event")
					continue
				}
				select {
				case out <- evt:
				default:
					sub.signalOverflow()
					b.logger.Warn().Str("kind", evt.Kind).Msg("event dropped for slow subscriber")
				}
			}
		}
	}()

	return sub, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (b *RedisBroker) Close() error {
	return nil
}
