// Package realtime fans application and job changes out to live feed subscribers.
package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event kinds
const (
	KindApplication = "application"
	KindJob         = "job"
)

// Event operations
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// Event describes one committed change. Subscribers re-project from the database,
// so an event only has to say who is affected.
type Event struct {
	Kind          string    `json:"kind"`
	Op            string    `json:"op"`
	ApplicationID uint      `json:"application_id,omitempty"`
	JobID         uint      `json:"job_id,omitempty"`
	SeekerID      uuid.UUID `json:"seeker_id"`
	EmployerID    uuid.UUID `json:"employer_id"`
	At            time.Time `json:"at"`
}

// TouchesSeeker reports whether the seeker feed of id must refresh.
func (e Event) TouchesSeeker(id uuid.UUID) bool {
	return e.SeekerID == id
}

// TouchesEmployer reports whether the employer feed of id must refresh.
// Both job and application events carry the owning employer.
func (e Event) TouchesEmployer(id uuid.UUID) bool {
	return e.EmployerID == id
}

// Broker publishes events to every current subscriber.
type Broker interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe registers a subscriber. The subscription is released when ctx ends or Close is called.
	Subscribe(ctx context.Context) (*Subscription, error)
	Close() error
}

// Subscription is one registered listener.
type Subscription struct {
	events   <-chan Event
	overflow chan struct{}
	cancel   func()
}

func newSubscription(events <-chan Event, cancel func()) *Subscription {
	return &Subscription{events: events, overflow: make(chan struct{}, 1), cancel: cancel}
}

// Events delivers published events. It is closed once the subscription is released.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Overflow fires after at least one event was dropped because the queue was full.
// The dropped event is unknown, so the listener has to assume it was affected.
func (s *Subscription) Overflow() <-chan struct{} {
	return s.overflow
}

func (s *Subscription) signalOverflow() {
	select {
	case s.overflow <- struct{}{}:
	default:
	}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}

// subscriberBuffer is the per subscriber queue; events beyond it are dropped
const subscriberBuffer = 64

// Stamp fills At when unset.
func Stamp(evt Event) Event {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	return evt
}

// Notify publishes evt on b and logs a failure instead of returning it. The change is already
// committed, so a lost event only delays live views until their next refresh. A nil b is ignored.
func Notify(ctx context.Context, b Broker, evt Event) {
	if b == nil {
		return
	}
	if err := b.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("kind", evt.Kind).Str("op", evt.Op).Msg("failed to publish change event")
	}
}
