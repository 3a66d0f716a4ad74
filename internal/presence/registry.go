// Package presence tracks which users hold a live connection.
package presence

import (
	"sort"
	"sync"
)

// Handle is one live connection of a user.
type Handle interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Registry maps user ids to their live handles. State lives only in memory
// and starts empty on every process start.
type Registry struct {
	mu      sync.RWMutex
	handles map[int]map[string]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int]map[string]Handle)}
}

// Add registers a handle and reports whether it is the user's first one.
func (r *Registry) Add(userID int, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.handles[userID]
	if !ok {
		set = make(map[string]Handle)
		r.handles[userID] = set
	}
	set[h.ID()] = h
	return !ok
}

// Remove drops a handle and reports whether the user went offline.
// Removing an unknown handle is a no-op.
func (r *Registry) Remove(userID int, handleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.handles[userID]
	if !ok {
		return false
	}
	if _, exists := set[handleID]; !exists {
		return false
	}
	delete(set, handleID)
	if len(set) == 0 {
		delete(r.handles, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles[userID]) > 0
}

// OnlineUserIDs returns the online user ids in ascending order.
func (r *Registry) OnlineUserIDs() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// Handles returns a snapshot of the user's handles.
func (r *Registry) Handles(userID int) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.handles[userID]
	out := make([]Handle, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// All returns a snapshot of every live handle.
func (r *Registry) All() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for _, set := range r.handles {
		for _, h := range set {
			out = append(out, h)
		}
	}
	return out
}

// Count is the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
