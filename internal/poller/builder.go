// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/SeedmyUgaraes/Massa-sub000/internal/config"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// ConfigFrom converts the engine section of the config file.
// Assumes config has already passed Validate and Normalize.
func ConfigFrom(e cfg.EngineConfig) Config {
	return Config{
		PollInterval:      ms(e.PollIntervalMs),
		ConnectTimeout:    ms(e.ConnectTimeoutMs),
		OfflineThreshold:  ms(e.OfflineThresholdMs),
		ReconnectDelay:    ms(e.ReconnectDelayMs),
		DeadbandGrams:     e.DeadbandGrams,
		AutoZeroOnConnect: e.AutoZeroOnConnect,
	}
}

// BuildRegistry creates the scale registry from the config file.
func BuildRegistry(c *cfg.Config) (*device.Registry, error) {
	reg := device.NewRegistry()
	for _, sc := range c.Scales {
		s := device.NewScale(sc.ID, sc.Name, sc.Address)
		s.Enabled = sc.IsEnabled()
		s.Slot = sc.StatusSlot
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Build wires an Engine for the configured fleet.
func Build(c *cfg.Config, reg *device.Registry, deps Deps) (*Engine, error) {
	return NewEngine(reg, ConfigFrom(c.Engine), deps)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
