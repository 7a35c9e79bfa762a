package broadcast

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber message buffer. A subscriber that
// falls this far behind starts losing messages.
const subscriberBuffer = 8

// Hub fans story updates out to live subscribers. Slow subscribers never
// block the publisher; their messages are dropped instead.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan []byte)}
}

// Subscribe registers a new subscriber and returns its id and receive
// channel. The channel is closed on Unsubscribe.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	count := len(h.subscribers)
	h.mu.Unlock()

	log.Printf("Subscriber %s connected (%d total)", id, count)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// twice.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		close(ch)
		log.Printf("Subscriber %s disconnected (%d total)", id, count)
	}
}

// Publish delivers a message to every subscriber. A subscriber with a
// full buffer misses this message; the others are unaffected.
func (h *Hub) Publish(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- message:
		default:
			log.Printf("Dropping message for slow subscriber %s", id)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
