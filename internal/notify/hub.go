// Package notify delivers ticket updates to connected clients. It is a
// plain in-process fan-out; each SSE connection holds one subscription.
package notify

import (
	"sync"

	"github.com/pgpay/pgpay-backend/internal/models"
)

const subscriberBuffer = 8

// Hub routes ticket events to subscribers keyed by owning user ID.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.Ticket]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan models.Ticket]struct{})}
}

// Subscribe registers a listener for the user's ticket updates. The
// returned cancel func must be called on teardown.
func (h *Hub) Subscribe(userID string) (<-chan models.Ticket, func()) {
	ch := make(chan models.Ticket, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan models.Ticket]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the ticket to every subscriber of its owner. Slow
// subscribers with a full buffer miss the event rather than blocking the
// publisher; the client's next list fetch reconciles.
func (h *Hub) Publish(t models.Ticket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[t.UserID] {
		select {
		case ch <- t:
		default:
		}
	}
}
