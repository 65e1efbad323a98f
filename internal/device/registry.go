// internal/device/registry.go
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNilScale       = errors.New("device: nil scale")
	ErrDuplicateScale = errors.New("device: duplicate scale id")
)

// Registry is the set of known scales in registration order.
//
// Callers may add and remove scales at any time. Running engines work on the
// slice returned by List and must be restarted to see changes.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	scales map[string]*Scale
}

func NewRegistry() *Registry {
	return &Registry{scales: make(map[string]*Scale)}
}

// Add registers s. An empty ID is replaced by a random one.
func (r *Registry) Add(s *Scale) error {
	if s == nil {
		return ErrNilScale
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.state.Load() == nil {
		s.state.Store(&State{})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scales[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScale, s.ID)
	}
	r.scales[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

// Remove drops a scale. Loops still holding the pointer keep working on it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scales[id]; !ok {
		return false
	}
	delete(r.scales, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns nil when id is unknown.
func (r *Registry) Get(id string) *Scale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scales[id]
}

// List returns a copy of the current scales in registration order.
func (r *Registry) List() []*Scale {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Scale, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.scales[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scales)
}
