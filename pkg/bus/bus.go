// Package bus provides the shared event broadcast: every decoded inbound
// event is fanned out to all subscribed consumers, each on its own buffered
// channel. Delivery is at-least-once per connected consumer; there is no
// global ordering across connections, but each connection's events arrive
// in decode order.
package bus

import (
	"sync"

	"github.com/grvsrs/onebus/pkg/logger"
	"github.com/grvsrs/onebus/pkg/onebot"
)

const subscriberBuffer = 256

// Subscriber is a named tap on the event stream. Multiple subscribers
// independently consume copies of the same published events (fan-out).
type Subscriber struct {
	Name string
	ch   chan onebot.Event
}

// EventBus fans published events out to every subscriber.
type EventBus struct {
	mu        sync.RWMutex
	subs      []*Subscriber
	closed    bool
	closeOnce sync.Once
}

// NewEventBus creates an empty broadcast source.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe creates a named subscriber that receives all events published
// after this call. The returned channel is buffered; a consumer that falls
// more than the buffer behind loses events rather than stalling the
// publishers.
func (b *EventBus) Subscribe(name string) <-chan onebot.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscriber{Name: name, ch: make(chan onebot.Event, subscriberBuffer)}
	b.subs = append(b.subs, sub)
	return sub.ch
}

// Publish delivers an event to every subscriber without blocking the
// caller. Slow subscribers drop.
func (b *EventBus) Publish(ev onebot.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			logger.WarnCF("bus", "subscriber lagging, event dropped", map[string]interface{}{
				"subscriber": sub.Name,
				"category":   ev.Category(),
			})
		}
	}
}

// Close terminates all subscriber channels. Publish becomes a no-op.
func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		for _, sub := range b.subs {
			close(sub.ch)
		}
		b.mu.Unlock()
	})
}
