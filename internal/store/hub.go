package store

import (
	"sync"

	"SignalSentinel/internal/model"
)

// Hub fans signals out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses that signal.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.Signal
	next   uint64
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriber channels hold buffer signals.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[uint64]chan model.Signal), buffer: buffer}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan model.Signal, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.Signal, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers sig to every subscriber with room and returns how many
// subscribers missed it.
func (h *Hub) Publish(sig model.Signal) (dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- sig:
		default:
			dropped++
		}
	}
	return dropped
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
