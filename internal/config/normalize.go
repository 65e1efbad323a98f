// internal/config/normalize.go
package config

// Defaults applied by Normalize to zero values.
const (
	DefaultPollIntervalMs         = 200
	DefaultConnectTimeoutMs       = 1500
	DefaultOfflineThresholdMs     = 3000
	DefaultReconnectDelayMs       = 2000
	DefaultCameraUpdateIntervalMs = 500
	MinIntervalMs                 = 100

	DefaultNoConnectionText = "NO CONNECTION"
	DefaultUnstableText     = "U"

	DefaultCameraPort      = 80
	DefaultLineHeight      = 32
	DefaultStatusTimeoutMs = 1000
	DefaultMQTTClientID    = "massa-osd"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	e := &cfg.Engine
	e.PollIntervalMs = clampMin(orDefault(e.PollIntervalMs, DefaultPollIntervalMs), MinIntervalMs)
	e.ConnectTimeoutMs = orDefault(e.ConnectTimeoutMs, DefaultConnectTimeoutMs)
	e.OfflineThresholdMs = orDefault(e.OfflineThresholdMs, DefaultOfflineThresholdMs)
	e.ReconnectDelayMs = orDefault(e.ReconnectDelayMs, DefaultReconnectDelayMs)
	e.CameraUpdateIntervalMs = clampMin(orDefault(e.CameraUpdateIntervalMs, DefaultCameraUpdateIntervalMs), MinIntervalMs)

	if e.NoConnectionText == "" {
		e.NoConnectionText = DefaultNoConnectionText
	}
	if e.UnstableText == "" {
		e.UnstableText = DefaultUnstableText
	}

	for i := range cfg.Cameras {
		c := &cfg.Cameras[i]
		if c.Port == 0 {
			c.Port = DefaultCameraPort
		}
		if c.LineHeight == 0 {
			c.LineHeight = DefaultLineHeight
		}
	}

	if m := cfg.StatusMirror; m != nil && m.TimeoutMs <= 0 {
		m.TimeoutMs = DefaultStatusTimeoutMs
	}
	if q := cfg.Telemetry.MQTT; q != nil && q.ClientID == "" {
		q.ClientID = DefaultMQTTClientID
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func clampMin(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
