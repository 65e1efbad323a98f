// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides. Secrets usually live here rather than in the file.
const (
	EnvHTTPListen     = "MASSA_HTTP_LISTEN"
	EnvLogLevel       = "MASSA_LOG_LEVEL"
	EnvCameraUsername = "MASSA_CAMERA_USERNAME"
	EnvCameraPassword = "MASSA_CAMERA_PASSWORD"
	EnvMQTTPassword   = "MASSA_MQTT_PASSWORD"
)

// Load reads a YAML config file and applies environment overrides.
// A .env file next to the working directory is loaded first, if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// Parse decodes YAML. Unknown keys are rejected so typos surface early.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overlays environment values. Camera credentials only fill blanks.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvHTTPListen)); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}

	user := getenv(EnvCameraUsername)
	pass := getenv(EnvCameraPassword)
	for i := range cfg.Cameras {
		c := &cfg.Cameras[i]
		if c.Username == "" {
			c.Username = user
		}
		if c.Password == "" {
			c.Password = pass
		}
	}

	if cfg.Telemetry.MQTT != nil {
		if v := getenv(EnvMQTTPassword); v != "" {
			cfg.Telemetry.MQTT.Password = v
		}
	}
}
