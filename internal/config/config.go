// internal/config/config.go
package config

type Config struct {
	Engine       EngineConfig        `yaml:"engine"`
	Scales       []ScaleConfig       `yaml:"scales"`
	Cameras      []CameraConfig      `yaml:"cameras"`
	StatusMirror *StatusMirrorConfig `yaml:"status_mirror"`
	Telemetry    TelemetryConfig     `yaml:"telemetry"`
	HTTP         HTTPConfig          `yaml:"http"`
	Log          LogConfig           `yaml:"log"`
}

// ---- ENGINE ----

type EngineConfig struct {
	PollIntervalMs     int     `yaml:"poll_interval_ms"`
	ConnectTimeoutMs   int     `yaml:"connect_timeout_ms"`
	OfflineThresholdMs int     `yaml:"offline_threshold_ms"`
	ReconnectDelayMs   int     `yaml:"reconnect_delay_ms"`
	DeadbandGrams      float64 `yaml:"deadband_grams"`
	AutoZeroOnConnect  bool    `yaml:"auto_zero_on_connect"`

	CameraUpdateIntervalMs int    `yaml:"camera_update_interval_ms"`
	NoConnectionText       string `yaml:"no_connection_text"`
	UnstableText           string `yaml:"unstable_text"`
	OverlayTemplate        string `yaml:"overlay_template"` // reserved, not rendered
	ClearOverlaysOnStop    bool   `yaml:"clear_overlays_on_stop"`
}

// ---- SCALE ----

type ScaleConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"` // host:port or serial:///dev/ttyUSB0?baud=9600
	Enabled *bool  `yaml:"enabled"`

	// Device status block in the status mirror (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
}

func (s ScaleConfig) IsEnabled() bool { return boolOr(s.Enabled, true) }

// ---- CAMERA ----

type CameraConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Enabled  *bool  `yaml:"enabled"`

	BaseX      int `yaml:"base_x"`
	BaseY      int `yaml:"base_y"`
	LineHeight int `yaml:"line_height"`

	Bindings []BindingConfig `yaml:"bindings"`
}

func (c CameraConfig) IsEnabled() bool { return boolOr(c.Enabled, true) }

type BindingConfig struct {
	Scale        string `yaml:"scale"`
	OverlayID    int    `yaml:"overlay_id"`
	Enabled      *bool  `yaml:"enabled"`
	AutoPosition *bool  `yaml:"auto_position"`
	X            int    `yaml:"x"`
	Y            int    `yaml:"y"`
}

func (b BindingConfig) IsEnabled() bool      { return boolOr(b.Enabled, true) }
func (b BindingConfig) IsAutoPosition() bool { return boolOr(b.AutoPosition, true) }

// ---- STATUS MIRROR ----

type StatusMirrorConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	MQTT  *MQTTConfig  `yaml:"mqtt"`
	Kafka *KafkaConfig `yaml:"kafka"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ---- HTTP / LOG ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the API
}

type LogConfig struct {
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
