// internal/events/events.go

// Package events carries engine notifications to whoever is listening,
// such as the HTTP event stream or the status mirror.
package events

import (
	"fmt"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// Kind names an event type on the wire.
type Kind string

const (
	KindLog                Kind = "log"
	KindScaleUpdated       Kind = "scale_updated"
	KindScaleStatusChanged Kind = "scale_status_changed"
	KindCameraStatus       Kind = "camera_status_changed"
)

// Event is implemented by every payload published on a Bus.
type Event interface {
	Kind() Kind
}

// LogMessage is one human-readable log line.
type LogMessage struct {
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Level  string    `json:"level"`
	Text   string    `json:"text"`
}

func (LogMessage) Kind() Kind { return KindLog }

// Line renders the message as one log pane line.
func (m LogMessage) Line() string {
	if m.Source == "" {
		return fmt.Sprintf("%s %s", m.Time.Format("15:04:05"), m.Text)
	}
	return fmt.Sprintf("%s [%s] %s", m.Time.Format("15:04:05"), m.Source, m.Text)
}

// ScaleUpdated fires when a scale's debounced reading changes.
type ScaleUpdated struct {
	ScaleID string       `json:"scale_id"`
	Name    string       `json:"name"`
	State   device.State `json:"state"`
}

func (ScaleUpdated) Kind() Kind { return KindScaleUpdated }

// ScaleStatusChanged fires on scale online/offline edges only.
type ScaleStatusChanged struct {
	ScaleID string    `json:"scale_id"`
	Online  bool      `json:"online"`
	Reason  string    `json:"reason,omitempty"`
	Code    uint16    `json:"code,omitempty"`
	At      time.Time `json:"at"`
}

func (ScaleStatusChanged) Kind() Kind { return KindScaleStatusChanged }

// CameraStatusChanged fires on camera online/offline edges only.
type CameraStatusChanged struct {
	CameraID string    `json:"camera_id"`
	Online   bool      `json:"online"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

func (CameraStatusChanged) Kind() Kind { return KindCameraStatus }
