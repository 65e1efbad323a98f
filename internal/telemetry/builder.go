// internal/telemetry/builder.go
package telemetry

import (
	cfg "github.com/SeedmyUgaraes/Massa-sub000/internal/config"
)

// BuildPublishers creates one publisher per configured sink.
func BuildPublishers(c cfg.TelemetryConfig) ([]Publisher, error) {
	var pubs []Publisher

	if c.MQTT != nil {
		p, err := NewMQTTPublisher(*c.MQTT)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}

	if c.Kafka != nil {
		pubs = append(pubs, NewKafkaPublisher(*c.Kafka))
	}

	return pubs, nil
}
