// internal/camera/registry.go
package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNilCamera        = errors.New("camera: nil camera")
	ErrDuplicateCamera  = errors.New("camera: duplicate camera id")
	ErrOverlayCollision = errors.New("camera: overlay id collision")
	ErrInvalidOverlay   = errors.New("camera: overlay id must be >= 1")
)

// Registry is the set of known cameras in registration order.
// Running engines must be restarted to see changes.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	cameras map[string]*Camera
}

func NewRegistry() *Registry {
	return &Registry{cameras: make(map[string]*Camera)}
}

// Add registers c after checking its bindings.
// An empty ID is replaced by a random one.
func (r *Registry) Add(c *Camera) error {
	if c == nil {
		return ErrNilCamera
	}
	if err := ValidateBindings(c); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cameras[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCamera, c.ID)
	}
	r.cameras[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cameras[id]; !ok {
		return false
	}
	delete(r.cameras, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns nil when id is unknown.
func (r *Registry) Get(id string) *Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cameras[id]
}

// List returns a copy of the current cameras in registration order.
func (r *Registry) List() []*Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Camera, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cameras[id])
	}
	return out
}
