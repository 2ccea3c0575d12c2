package syncer

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hoardlabs/hoard/internal/models"
)

// Listener receives every sync state mutation, plus an immediate replay of
// the current state on subscribe.
type Listener func(models.SyncState)

// stateHub owns the process-wide SyncState and its subscriber list. It is
// an owned object on the Syncer rather than package state so tests can run
// multiple engines side by side.
type stateHub struct {
	mu        sync.Mutex
	state     models.SyncState
	listeners map[string]Listener
}

func newStateHub(initial models.SyncState) *stateHub {
	return &stateHub{
		state:     initial,
		listeners: make(map[string]Listener),
	}
}

// Get returns a snapshot of the current state.
func (h *stateHub) Get() models.SyncState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Subscribe registers a listener, replays it the current state immediately,
// and returns an unsubscribe function.
func (h *stateHub) Subscribe(listener Listener) func() {
	h.mu.Lock()
	id := uuid.New().String()
	h.listeners[id] = listener
	current := h.state
	h.mu.Unlock()

	listener(current)

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Update applies a mutation to the state and notifies every listener.
func (h *stateHub) Update(mutate func(*models.SyncState)) {
	h.mu.Lock()
	mutate(&h.state)
	state := h.state
	listeners := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

// SetOnline records a connectivity transition. Offline is a parallel state:
// it flips the status field only when no sync is mid-flight, and an offline
// transition never interrupts a running sync.
func (h *stateHub) SetOnline(online bool) {
	h.Update(func(s *models.SyncState) {
		s.IsOnline = online
		switch {
		case !online && s.Status == models.SyncIdle:
			s.Status = models.SyncOffline
		case online && s.Status == models.SyncOffline:
			s.Status = models.SyncIdle
		}
	})
}
