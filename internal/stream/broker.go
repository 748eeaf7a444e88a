// Package stream broadcasts bus events to connected SSE clients.
package stream

import (
	"sync"

	"fleetwatch/internal/events"
)

// clientBuffer is the per-client queue depth before events are dropped.
const clientBuffer = 64

// Broker fans out events to per-client channels.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan events.Event]struct{}
}

// NewBroker creates a ready-to-use broker.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan events.Event]struct{})}
}

// Attach subscribes the broker to every event on bus and returns the
// function that detaches it.
func (b *Broker) Attach(bus *events.Bus) func() {
	return bus.Subscribe(b.Publish)
}

// Subscribe returns a channel that receives every published event.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe() chan events.Event {
	ch := make(chan events.Event, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel and closes it.
func (b *Broker) Unsubscribe(ch chan events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// Publish sends evt to every client. Non-blocking: if a client's buffer is
// full the event is dropped for that client.
func (b *Broker) Publish(evt events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Clients reports the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
