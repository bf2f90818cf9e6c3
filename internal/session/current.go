// Package session keeps per-session presentation state. The analysis
// pipeline itself is stateless; the single "current" result a client shows
// after a run lives here, keyed by session ID.
package session

import "sync"

// Holder stores one value per session with last-write-wins semantics.
type Holder[T any] struct {
	mu   sync.RWMutex
	byID map[string]T
}

// NewHolder constructs an empty Holder.
func NewHolder[T any]() *Holder[T] {
	return &Holder[T]{byID: make(map[string]T)}
}

// Set replaces the current value for a session.
func (h *Holder[T]) Set(sessionID string, value T) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[sessionID] = value
}

// Get returns the current value for a session.
func (h *Holder[T]) Get(sessionID string) (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, ok := h.byID[sessionID]
	return value, ok
}

// Clear removes the current value for a session.
func (h *Holder[T]) Clear(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, sessionID)
}
