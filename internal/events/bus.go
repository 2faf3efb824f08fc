package events

import (
	"sync"
	"time"
)

// Message is the envelope every subscriber receives. Payload carries the
// topic-specific value and Time is stamped at publish.
type Message struct {
	Event   Event     `json:"event"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan Message
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan Message)}
}

// Subscribe registers a listener for one topic and returns the channel and
// an unsubscribe function. The channel closes on unsubscribe.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan Message, func()) {
	return b.SubscribeAll(buffer, e)
}

// SubscribeAll registers one listener across several topics, merged into a
// single channel.
func (b *Bus) SubscribeAll(buffer int, topics ...Event) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, buffer)
	for _, e := range topics {
		b.subs[e] = append(b.subs[e], ch)
	}

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for _, e := range topics {
				subs := b.subs[e]
				for i, c := range subs {
					if c == ch {
						b.subs[e] = append(subs[:i], subs[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}

	return ch, unsub
}

// Publish fan-outs the payload to subscribers asynchronously to avoid blocking.
func (b *Bus) Publish(e Event, payload any) {
	msg := Message{Event: e, Payload: payload, Time: time.Now().UTC()}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- msg:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
