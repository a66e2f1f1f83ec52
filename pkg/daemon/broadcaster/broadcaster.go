// Package broadcaster fans controller events out to event-stream
// subscribers (the websocket endpoint and the TUI).
package broadcaster

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

// Subscriber is one registered event consumer.
type Subscriber struct {
	ID     string
	Types  map[monitor.EventType]bool // empty means all types
	Events chan monitor.Event
}

// wants reports whether the subscriber cares about this event type.
func (s *Subscriber) wants(t monitor.EventType) bool {
	return len(s.Types) == 0 || s.Types[t]
}

// Broadcaster distributes controller events to subscribers. Slow
// subscribers lose events rather than blocking the controller.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a consumer for the given event types; no types
// means all events.
func (b *Broadcaster) Subscribe(types ...monitor.EventType) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Types:  make(map[monitor.EventType]bool, len(types)),
		Events: make(chan monitor.Event, 100),
	}
	for _, t := range types {
		sub.Types[t] = true
	}

	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify delivers an event to all matching subscribers. It never blocks;
// a full channel drops the event for that subscriber.
func (b *Broadcaster) Notify(event monitor.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.Events <- event:
		default:
			// Channel full, event dropped.
		}
	}
}

// Close shuts down the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
