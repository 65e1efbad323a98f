// internal/osd/types.go
package osd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/isapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

// MinUpdateInterval is the floor applied to the configured update interval.
const MinUpdateInterval = 100 * time.Millisecond

// DefaultOnlineTimeout is how long an online camera may go without a
// successful push before it is marked offline.
const DefaultOnlineTimeout = 5 * time.Second

// ReasonUpdateTimeout is the offline reason used by the liveness check.
const ReasonUpdateTimeout = "update timeout"

// Config is the runtime config shared read-only by every camera loop.
type Config struct {
	UpdateInterval time.Duration
	OnlineTimeout  time.Duration
	Render         overlay.Options

	// ClearOnStop blanks every bound overlay when the engine stops.
	ClearOnStop bool
}

func (c Config) interval() time.Duration {
	if c.UpdateInterval < MinUpdateInterval {
		return MinUpdateInterval
	}
	return c.UpdateInterval
}

func (c Config) onlineTimeout() time.Duration {
	if c.OnlineTimeout <= 0 {
		return DefaultOnlineTimeout
	}
	return c.OnlineTimeout
}

// OverlayClient is the camera-side API the engine pushes through.
// *isapi.Client implements it.
type OverlayClient interface {
	SetOverlayText(ctx context.Context, host string, port, overlayID, x, y int, text string) error
	ClearOverlay(ctx context.Context, host string, port, overlayID int) error
	Close() error
}

// ClientFactory builds the client owned by one camera loop.
type ClientFactory func(cam *camera.Camera) OverlayClient

// ISAPIClients is the production factory.
func ISAPIClients(cam *camera.Camera) OverlayClient {
	return isapi.New(cam.Username, cam.Password)
}

// Observer receives per-camera counters. Implemented by the metrics package.
type Observer interface {
	PushSucceeded(cameraID string)
	PushFailed(cameraID string)
	CameraOnline(cameraID string, online bool)
}

type nopObserver struct{}

func (nopObserver) PushSucceeded(string)     {}
func (nopObserver) PushFailed(string)        {}
func (nopObserver) CameraOnline(string, bool) {}

// reason turns a push failure into the status text shown to operators.
func reason(err error) string {
	var pe *isapi.ProtocolError
	if errors.As(err, &pe) {
		if pe.Body == "" {
			return fmt.Sprintf("HTTP %d", pe.StatusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", pe.StatusCode, pe.Body)
	}
	return err.Error()
}
