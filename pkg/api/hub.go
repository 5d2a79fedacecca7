package api

import (
	"sync"

	"chatd/pkg/chat"
	"chatd/pkg/logger"
)

// Hub fans archive events out to event-stream subscribers. A subscriber
// whose buffer is full is dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan chat.NewMessage]struct{}
	buf    int
	closed bool
}

// NewHub returns a hub giving every subscriber a buffer of buf events.
func NewHub(buf int) *Hub {
	if buf <= 0 {
		buf = 64
	}
	return &Hub{subs: make(map[chan chat.NewMessage]struct{}), buf: buf}
}

// Publish implements chat.Publisher. It never blocks.
func (h *Hub) Publish(m chat.NewMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
			delete(h.subs, ch)
			close(ch)
			logger.Warn("event_subscriber_dropped", "chat", m.Chat)
		}
	}
}

// Subscribe registers a new subscriber. The channel is closed when the
// subscriber is dropped, cancelled or the hub closes.
func (h *Hub) Subscribe() (<-chan chat.NewMessage, func()) {
	ch := make(chan chat.NewMessage, h.buf)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subs[ch] = struct{}{}
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
