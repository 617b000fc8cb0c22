package tasklist

import (
	"sync"
	"time"
)

// Registry keeps one ViewModel per signed-in browser session.
type Registry struct {
	store Mutator

	mu    sync.Mutex
	views map[string]*ViewModel
}

// NewRegistry creates an empty Registry whose views write through store.
func NewRegistry(store Mutator) *Registry {
	return &Registry{store: store, views: make(map[string]*ViewModel)}
}

// Get returns the view of sessionID, creating it for owner on first use.
func (r *Registry) Get(sessionID, owner string) *ViewModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	vm, ok := r.views[sessionID]
	if !ok || vm.owner != owner {
		vm = New(r.store, owner)
		r.views[sessionID] = vm
	}
	return vm
}

// Drop forgets the view of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, sessionID)
}

// Sweep drops detached views unused for longer than idle and returns how
// many were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, vm := range r.views {
		if vm.idleSince(cutoff) {
			delete(r.views, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
