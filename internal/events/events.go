// Package events is a small in-process bus for registry notifications.
package events

import (
	"sync"
	"time"
)

// Type classifies an event.
type Type string

const (
	// Drift signals that a client config file changed outside orbit.
	Drift Type = "drift"
	// Info carries informational messages.
	Info Type = "info"
	// Error carries non-fatal failures worth surfacing.
	Error Type = "error"
)

// Event is one bus message.
type Event struct {
	Type    Type
	Message string
	// Client and Path are set for drift events.
	Client string
	Path   string
	At     time.Time
}

// Bus fans events out to subscribers. Publishing never blocks: subscribers
// that fall behind lose events rather than stalling the publisher.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a buffered channel that receives future events.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an event to all subscribers, stamping At when unset.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
