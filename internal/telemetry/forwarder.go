// internal/telemetry/forwarder.go

// Package telemetry republishes scale readings to message brokers.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
)

// ForwarderSubscriber is the bus subscription id of the forwarder.
const ForwarderSubscriber = "telemetry"

// publishTimeout bounds one publish to one sink.
const publishTimeout = 5 * time.Second

// Publisher is one broker sink. Key is the scale id.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Message is the JSON document sent for every scale event.
type Message struct {
	Type      events.Kind `json:"type"`
	ScaleID   string      `json:"scale_id"`
	Name      string      `json:"name,omitempty"`
	NetGrams  float64     `json:"net_g"`
	TareGrams float64     `json:"tare_g"`
	Stable    bool        `json:"stable"`
	Protocol  string      `json:"protocol,omitempty"`
	Online    bool        `json:"online"`
	Reason    string      `json:"reason,omitempty"`
	At        time.Time   `json:"at"`
}

// FromEvent converts a scale event. ok is false for other event kinds.
func FromEvent(ev events.Event) (Message, bool) {
	switch e := ev.(type) {
	case events.ScaleUpdated:
		return Message{
			Type:      e.Kind(),
			ScaleID:   e.ScaleID,
			Name:      e.Name,
			NetGrams:  e.State.NetGrams,
			TareGrams: e.State.TareGrams,
			Stable:    e.State.Stable,
			Protocol:  e.State.Protocol.String(),
			Online:    true,
			At:        e.State.LastUpdate,
		}, true
	case events.ScaleStatusChanged:
		return Message{
			Type:    e.Kind(),
			ScaleID: e.ScaleID,
			Online:  e.Online,
			Reason:  e.Reason,
			At:      e.At,
		}, true
	}
	return Message{}, false
}

// Forwarder copies scale events from the bus to every publisher.
type Forwarder struct {
	bus  *events.Bus
	pubs []Publisher
	log  *slog.Logger

	// failing tracks publishers in a failure streak, for edge-triggered logs
	failing map[string]bool
}

func NewForwarder(bus *events.Bus, logger *slog.Logger, pubs ...Publisher) *Forwarder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Forwarder{
		bus:     bus,
		pubs:    pubs,
		log:     logger.With(logging.SourceKey, "telemetry"),
		failing: make(map[string]bool),
	}
}

// Run forwards until ctx is done or the bus closes, then closes every publisher.
func (f *Forwarder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ForwarderSubscriber, events.DefaultBuffer)
	if err != nil {
		return err
	}
	defer f.bus.Unsubscribe(ForwarderSubscriber)
	defer f.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			f.forward(ctx, ev)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, ev events.Event) {
	msg, ok := FromEvent(ev)
	if !ok {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		f.log.Error("telemetry encode failed", "error", err)
		return
	}

	for _, p := range f.pubs {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := p.Publish(pctx, msg.ScaleID, payload)
		cancel()

		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			if !f.failing[p.Name()] {
				f.failing[p.Name()] = true
				f.log.Warn("telemetry publish failed", "sink", p.Name(), "error", err)
			}
		case f.failing[p.Name()]:
			f.failing[p.Name()] = false
			f.log.Info("telemetry publish recovered", "sink", p.Name())
		}
	}
}

func (f *Forwarder) closeAll() {
	for _, p := range f.pubs {
		_ = p.Close()
	}
}
