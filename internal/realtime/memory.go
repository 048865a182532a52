package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type memorySubscriber struct {
	events chan Event
	sub    *Subscription
}

// MemoryBroker is an in-process Broker for a single server instance.
type MemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[uint64]*memorySubscriber
	nextID      atomic.Uint64
	closed      bool
	logger      zerolog.Logger
}

// NewMemoryBroker creates an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subscribers: make(map[uint64]*memorySubscriber),
		logger:      log.With().Str("component", "broker").Logger(),
	}
}

// Publish sends evt to every subscriber without blocking. A full subscriber queue drops the event
// and signals overflow on that subscription.
func (b *MemoryBroker) Publish(_ context.Context, evt Event) error {
	evt = Stamp(evt)

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, s := range b.subscribers {
		select {
		case s.events <- evt:
		default:
			s.sub.signalOverflow()
			b.logger.Warn().Uint64("subscriber_id", id).Str("kind", evt.Kind).Msg("event dropped for slow subscriber")
		}
	}
	return nil
}

// Subscribe implements Broker.
func (b *MemoryBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	ch := make(chan Event, subscriberBuffer)
	id := b.nextID.Add(1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return newSubscription(ch, func() {}), nil
	}
	sub := newSubscription(ch, nil)
	b.subscribers[id] = &memorySubscriber{events: ch, sub: sub}
	b.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			if _, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(ch)
			}
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	sub.cancel = unsubscribe
	return sub, nil
}

// SubscriberCount returns the number of live subscriptions.
func (b *MemoryBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close releases every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subscribers {
		delete(b.subscribers, id)
		close(s.events)
	}
	return nil
}
