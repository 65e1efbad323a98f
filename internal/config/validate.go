// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	if err := validateEngine(cfg.Engine); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// SCALES
	// ------------------------------------------------------------

	scales := make(map[string]struct{}, len(cfg.Scales))
	slotOwner := make(map[uint16]string)

	for _, s := range cfg.Scales {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("scale %q: id is required", s.Name)
		}
		if _, dup := scales[s.ID]; dup {
			return fmt.Errorf("scale %q: duplicate id", s.ID)
		}
		scales[s.ID] = struct{}{}

		if strings.TrimSpace(s.Address) == "" {
			return fmt.Errorf("scale %q: address is required", s.ID)
		}

		if s.StatusSlot == nil {
			continue
		}

		// name ends up in the status block (ASCII only)
		for i := 0; i < len(s.Name); i++ {
			if s.Name[i] > 0x7F {
				return fmt.Errorf("scale %q: name must contain ASCII characters only when status_slot is set", s.ID)
			}
		}
		if cfg.StatusMirror == nil {
			return fmt.Errorf("scale %q: status_slot is set but status_mirror is not configured", s.ID)
		}
		if prev, exists := slotOwner[*s.StatusSlot]; exists {
			return fmt.Errorf("status_slot collision: slot=%d used by scales %q and %q", *s.StatusSlot, prev, s.ID)
		}
		slotOwner[*s.StatusSlot] = s.ID
	}

	// ------------------------------------------------------------
	// CAMERAS + BINDINGS
	// ------------------------------------------------------------

	cameras := make(map[string]struct{}, len(cfg.Cameras))

	for _, c := range cfg.Cameras {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("camera %q: id is required", c.Name)
		}
		if _, dup := cameras[c.ID]; dup {
			return fmt.Errorf("camera %q: duplicate id", c.ID)
		}
		cameras[c.ID] = struct{}{}

		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("camera %q: host is required", c.ID)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("camera %q: port %d out of range", c.ID, c.Port)
		}
		if c.LineHeight < 0 {
			return fmt.Errorf("camera %q: line_height must be >= 0", c.ID)
		}

		// key = overlay id, enabled bindings only
		overlayOwner := make(map[int]string)

		for i, b := range c.Bindings {
			if _, ok := scales[b.Scale]; !ok {
				return fmt.Errorf("camera %q binding %d: unknown scale %q", c.ID, i, b.Scale)
			}
			if b.OverlayID < 1 {
				return fmt.Errorf("camera %q binding %d: overlay_id must be >= 1", c.ID, i)
			}
			if !b.IsEnabled() {
				continue
			}
			if prev, exists := overlayOwner[b.OverlayID]; exists {
				return fmt.Errorf(
					"overlay_id collision: camera=%s overlay_id=%d used by scales %q and %q",
					c.ID, b.OverlayID, prev, b.Scale,
				)
			}
			overlayOwner[b.OverlayID] = b.Scale
		}
	}

	// ------------------------------------------------------------
	// SINKS
	// ------------------------------------------------------------

	if m := cfg.StatusMirror; m != nil && strings.TrimSpace(m.Endpoint) == "" {
		return fmt.Errorf("status_mirror: endpoint is required")
	}
	if q := cfg.Telemetry.MQTT; q != nil {
		if q.Broker == "" || q.Topic == "" {
			return fmt.Errorf("telemetry.mqtt: broker and topic are required")
		}
		if q.QoS > 2 {
			return fmt.Errorf("telemetry.mqtt: qos %d out of range", q.QoS)
		}
	}
	if k := cfg.Telemetry.Kafka; k != nil {
		if len(k.Brokers) == 0 || k.Topic == "" {
			return fmt.Errorf("telemetry.kafka: brokers and topic are required")
		}
	}

	return nil
}

func validateEngine(e EngineConfig) error {
	neg := map[string]int{
		"poll_interval_ms":          e.PollIntervalMs,
		"connect_timeout_ms":        e.ConnectTimeoutMs,
		"offline_threshold_ms":      e.OfflineThresholdMs,
		"reconnect_delay_ms":        e.ReconnectDelayMs,
		"camera_update_interval_ms": e.CameraUpdateIntervalMs,
	}
	for k, v := range neg {
		if v < 0 {
			return fmt.Errorf("engine.%s must be >= 0", k)
		}
	}
	if e.DeadbandGrams < 0 {
		return fmt.Errorf("engine.deadband_grams must be >= 0")
	}
	return nil
}
