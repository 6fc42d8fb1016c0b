package push

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is an in-process Broadcaster. Subscribers get their own buffered channel
// per destination; a subscriber that falls behind loses messages rather than
// stalling the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers for one destination and returns the message channel plus
// an unsubscribe function. Always call the unsubscribe function when done.
func (h *Hub) Subscribe(destination string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)

	h.mu.Lock()
	if h.subs[destination] == nil {
		h.subs[destination] = make(map[chan []byte]struct{})
	}
	h.subs[destination][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[destination]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, destination)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(destination string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[push] failed to encode payload for %s: %v", destination, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[destination] {
		select {
		case ch <- body:
		default:
			// Slow subscriber, drop.
		}
	}
}
