// internal/camera/camera.go

// Package camera holds the camera fleet and each camera's scale bindings.
package camera

import (
	"fmt"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// Binding links one camera overlay slot to one scale.
type Binding struct {
	ScaleID string

	// Scale is the direct reference. When nil the engine resolves ScaleID
	// through the device registry.
	Scale *device.Scale

	// OverlayID is the camera-side text overlay slot, 1-based.
	OverlayID int
	Enabled   bool

	AutoPosition bool
	X, Y         int
}

// Camera is one IP camera with its OSD layout.
type Camera struct {
	ID       string
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	Enabled  bool

	BaseX      int
	BaseY      int
	LineHeight int

	Bindings []Binding
}

// Position returns where binding index i is drawn.
// Auto-positioned bindings stack below the base anchor by their list index.
func (c *Camera) Position(i int) (x, y int) {
	b := c.Bindings[i]
	if !b.AutoPosition {
		return b.X, b.Y
	}
	return c.BaseX, c.BaseY + i*c.LineHeight
}

// Label is the name for humans, falling back to the id.
func (c *Camera) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Endpoint is host:port as used for client caching.
func (c *Camera) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ValidateBindings rejects enabled bindings that share an overlay slot.
// Disabled bindings are ignored.
func ValidateBindings(c *Camera) error {
	owner := make(map[int]string)
	for i, b := range c.Bindings {
		if b.OverlayID < 1 {
			return fmt.Errorf("%w: camera %s binding %d: overlay id %d", ErrInvalidOverlay, c.ID, i, b.OverlayID)
		}
		if !b.Enabled {
			continue
		}
		if prev, ok := owner[b.OverlayID]; ok {
			return fmt.Errorf("%w: camera %s overlay %d used by %s and %s",
				ErrOverlayCollision, c.ID, b.OverlayID, prev, b.ScaleID)
		}
		owner[b.OverlayID] = b.ScaleID
	}
	return nil
}
