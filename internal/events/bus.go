// Package events carries the gateway's order lifecycle between the
// core and its adapters: outbound venue traffic, execution reports,
// rejects and reconciliation alerts all travel as bus topics.
package events

import (
	"log"
	"sync"
)

// Bus is an in-process pub/sub broker. Publishing never blocks order
// processing; a subscriber that cannot keep up loses messages rather
// than stalling a session worker.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan any
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe returns a buffered channel of payloads for the topic and a
// function that unregisters and closes it. Payload types are per topic
// (fix.ExecutionReport on execution_report, order.Reconciliation on
// reconciliation, order ids on the plain lifecycle topics).
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	ch := make(chan any, buffer)

	b.mu.Lock()
	b.subs[e] = append(b.subs[e], ch)
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() { b.remove(e, ch) })
	}
	return ch, unsub
}

func (b *Bus) remove(e Event, ch chan any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[e]
	for i, c := range subs {
		if c == ch {
			b.subs[e] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish fans the payload out to every subscriber of the topic.
// Full subscriber buffers are skipped.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			log.Printf("events: dropping %s for slow subscriber", e)
		}
	}
}
