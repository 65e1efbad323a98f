// internal/osd/builder.go
package osd

import (
	"time"

	cfg "github.com/SeedmyUgaraes/Massa-sub000/internal/config"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

// ConfigFrom converts the engine section of the config file.
// Assumes config has already passed Validate and Normalize.
func ConfigFrom(e cfg.EngineConfig) Config {
	return Config{
		UpdateInterval: time.Duration(e.CameraUpdateIntervalMs) * time.Millisecond,
		OnlineTimeout:  DefaultOnlineTimeout,
		Render: overlay.Options{
			NoConnectionText: e.NoConnectionText,
			UnstableText:     e.UnstableText,
			Template:         e.OverlayTemplate,
			OfflineThreshold: time.Duration(e.OfflineThresholdMs) * time.Millisecond,
		},
		ClearOnStop: e.ClearOverlaysOnStop,
	}
}
