// internal/overlay/render.go

// Package overlay turns scale state into camera OSD text.
package overlay

import (
	"fmt"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// StableText is the status marker for a settled reading.
const StableText = "S"

// Options are the render settings shared by every camera.
type Options struct {
	NoConnectionText string
	UnstableText     string

	// Template is reserved for custom layouts. Render does not use it yet.
	Template string

	OfflineThreshold time.Duration
}

// Render produces the overlay line for s at now.
// A nil or offline scale renders NoConnectionText verbatim, whatever
// numbers are still sitting in its last state.
func Render(s *device.Scale, opts Options, now time.Time) string {
	if s == nil {
		return opts.NoConnectionText
	}
	return RenderState(s.State(), opts, now)
}

// RenderState is Render over a snapshot.
func RenderState(st device.State, opts Options, now time.Time) string {
	if !st.IsOnline(now, opts.OfflineThreshold) {
		return opts.NoConnectionText
	}

	status := opts.UnstableText
	if st.Stable {
		status = StableText
	}
	return fmt.Sprintf("N %.2fkg T %.2fkg [%s]", st.NetGrams/1000, st.TareGrams/1000, status)
}
