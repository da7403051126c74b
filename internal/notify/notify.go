// Package notify is a minimal change notifier: subscribers are invoked
// synchronously, in subscription order, on the publisher's goroutine. Any
// rendering layer can hang off it without the core knowing about UI concerns.
package notify

import "sync"

type entry struct {
	id int
	cb func()
}

// Hub fans a change signal out to registered callbacks.
type Hub struct {
	mu      sync.Mutex
	entries []entry
	nextID  int
}

func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers cb and returns an id for Unsubscribe.
func (h *Hub) Subscribe(cb func()) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.entries = append(h.entries, entry{id: h.nextID, cb: cb})
	return h.nextID
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// Publish invokes every subscriber. The list is copied first so callbacks may
// subscribe or unsubscribe without deadlocking.
func (h *Hub) Publish() {
	h.mu.Lock()
	cbs := make([]entry, len(h.entries))
	copy(cbs, h.entries)
	h.mu.Unlock()
	for _, e := range cbs {
		if e.cb != nil {
			e.cb()
		}
	}
}
