// Package events fans pending-queue changes out to live subscribers and, optionally, NATS.
package events

import (
	"context"
	"sync"
	"time"
)

// Type names a queue change.
type Type string

const (
	ClaimSubmitted     Type = "claim.submitted"
	PendingQueued      Type = "pending.queued"
	PendingReplayed    Type = "pending.replayed"
	PendingRetryFailed Type = "pending.retry_failed"
	PendingRemoved     Type = "pending.removed"
	PendingCleared     Type = "pending.cleared"
	PendingSnapshot    Type = "pending.snapshot"
)

const subscriberBufferSize = 16

// Event describes one change of the pending queue. Count is the queue size after it.
type Event struct {
	Type       Type      `json:"type"`
	PendingID  string    `json:"pending_id,omitempty"`
	Count      int       `json:"count"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Delivery is best effort; implementations log failures.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Multi publishes to every contained publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) {
	for _, publisher := range m {
		if publisher != nil {
			publisher.Publish(ctx, event)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Broker fans events out to in-process subscribers. Slow subscribers miss events rather
// than blocking publishers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroker constructs an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber; the returned function unregisters it and closes
// the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) Publish(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
