package services

import (
	"sync"

	"bolso/internal/core"
)

// Hub fans full transaction snapshots out to listeners. Every mutation
// republishes the whole collection; listeners never see deltas, so a
// missed notification is corrected by the next one.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan []core.Transaction
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan []core.Transaction)}
}

// Subscribe registers a listener. The returned cancel must be called to
// release the subscription.
func (h *Hub) Subscribe() (<-chan []core.Transaction, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan []core.Transaction, 1)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish sends the snapshot to every listener. A listener that has not
// drained its previous snapshot gets it replaced, not queued: only the
// latest state matters.
func (h *Hub) Publish(snapshot []core.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
