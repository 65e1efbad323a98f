// internal/events/bus.go
package events

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBusClosed        = errors.New("events: bus closed")
	ErrSubscriberExists = errors.New("events: subscriber already exists")
)

// DefaultBuffer is used when Subscribe is given a non-positive buffer.
const DefaultBuffer = 64

// SubscriberStats counts deliveries for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch      chan Event
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus fans events out to bounded subscriber channels.
//
// Publish never blocks: when a subscriber's buffer is full the new event is
// dropped for that subscriber and counted.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers id and returns its receive channel.
func (b *Bus) Subscribe(id string, buffer int) (<-chan Event, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	if _, exists := b.subs[id]; exists {
		return nil, ErrSubscriberExists
	}

	s := &subscriber{ch: make(chan Event, buffer)}
	b.subs[id] = s
	return s.ch, nil
}

// Unsubscribe removes id and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Publish delivers e to every subscriber. Safe on a nil Bus.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, s := range b.subs {
		select {
		case s.ch <- e:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

// Stats returns delivery counters for id.
func (b *Bus) Stats(id string) (SubscriberStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.subs[id]
	if !ok {
		return SubscriberStats{}, false
	}
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, true
}

// Close unsubscribes everyone. Further publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
}
