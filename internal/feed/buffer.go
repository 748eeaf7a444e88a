package feed

import "sync"

// DefaultCapacity is the number of events retained.
const DefaultCapacity = 50

// Buffer is a bounded, most-recent-first event history.
type Buffer struct {
	mu     sync.RWMutex
	cap    int
	events []Event
}

// NewBuffer creates a buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{cap: capacity, events: make([]Event, 0, capacity)}
}

// Push inserts evt at the front, evicting the oldest entry on overflow.
func (b *Buffer) Push(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) < b.cap {
		b.events = append(b.events, Event{})
	}
	copy(b.events[1:], b.events[:len(b.events)-1])
	b.events[0] = evt
}

// Events returns a copy of the buffer, newest first.
func (b *Buffer) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *Buffer) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// Clear drops every buffered event.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.events = b.events[:0]
	b.mu.Unlock()
}
