package app

import (
	"sync"
	"time"
)

// StandingsUpdate signals that the ranking changed because an attempt was submitted.
type StandingsUpdate struct {
	AttemptID string    `json:"attemptId"`
	StudentID string    `json:"studentId"`
	PaperID   string    `json:"paperId"`
	At        time.Time `json:"at"`
}

// Hub fans standings updates out to live subscribers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan StandingsUpdate]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan StandingsUpdate]struct{})}
}

// Subscribe returns a channel of updates. The caller must invoke the returned
// cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan StandingsUpdate, func()) {
	ch := make(chan StandingsUpdate, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish never blocks: a full subscriber loses its oldest pending update.
func (h *Hub) Publish(update StandingsUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
