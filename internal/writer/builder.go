// internal/writer/builder.go
package writer

import (
	"log/slog"
	"time"

	cfg "github.com/SeedmyUgaraes/Massa-sub000/internal/config"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	wmodbus "github.com/SeedmyUgaraes/Massa-sub000/internal/writer/modbus"
)

// BuildPlans returns one status plan per scale that has a status slot.
// Assumes config has already passed Validate and Normalize.
func BuildPlans(c *cfg.Config) []StatusPlan {
	if c.StatusMirror == nil {
		return nil
	}

	var plans []StatusPlan
	for _, s := range c.Scales {
		if s.StatusSlot == nil {
			continue
		}
		// EncodeName truncates; the configured name stays whole for labels.
		name := s.Name
		if name == "" {
			name = s.ID
		}
		plans = append(plans, StatusPlan{
			ScaleID:    s.ID,
			Endpoint:   c.StatusMirror.Endpoint,
			UnitID:     c.StatusMirror.UnitID,
			BaseSlot:   *s.StatusSlot,
			DeviceName: name,
		})
	}
	return plans
}

// BuildMirror wires the status mirror for the configured fleet.
// Returns a nil mirror when no scale has a status slot.
func BuildMirror(c *cfg.Config, reg *device.Registry, bus *events.Bus, logger *slog.Logger) (*Mirror, func() error, error) {
	plans := BuildPlans(c)
	if len(plans) == 0 {
		return nil, func() error { return nil }, nil
	}

	cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: c.StatusMirror.Endpoint,
		Timeout:  time.Duration(c.StatusMirror.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	m := NewMirror(bus, time.Duration(c.Engine.OfflineThresholdMs)*time.Millisecond, logger)
	for _, p := range plans {
		s := reg.Get(p.ScaleID)
		if s == nil {
			continue
		}
		m.Attach(s, NewDeviceStatusWriter(p, cli))
	}

	return m, cli.Close, nil
}
