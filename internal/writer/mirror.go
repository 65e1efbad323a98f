// internal/writer/mirror.go
package writer

import (
	"context"
	"log/slog"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/events"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/logging"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/status"
)

// MirrorSubscriber is the bus subscription id of the status mirror.
const MirrorSubscriber = "status-mirror"

type mirrorEntry struct {
	scale  *device.Scale
	writer StatusWriter
	snap   status.Snapshot
}

// Mirror keeps one status block per scale in sync with the engine's events.
// It owns every snapshot; nothing else writes them.
type Mirror struct {
	bus       *events.Bus
	log       *slog.Logger
	threshold time.Duration
	now       func() time.Time

	order   []string
	entries map[string]*mirrorEntry
}

// NewMirror creates an empty mirror. Scales are attached with Attach.
func NewMirror(bus *events.Bus, threshold time.Duration, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Mirror{
		bus:       bus,
		log:       logger.With(logging.SourceKey, "status"),
		threshold: threshold,
		now:       time.Now,
		entries:   make(map[string]*mirrorEntry),
	}
}

// Attach binds a scale to its status writer. Call before Run.
func (m *Mirror) Attach(s *device.Scale, w StatusWriter) {
	snap := status.Snapshot{Health: status.HealthUnknown}
	if !s.Enabled {
		snap.Health = status.HealthDisabled
	}
	m.entries[s.ID] = &mirrorEntry{scale: s, writer: w, snap: snap}
	m.order = append(m.order, s.ID)
}

// Len returns the number of attached scales.
func (m *Mirror) Len() int { return len(m.entries) }

// Run delivers status until ctx is done or the bus closes.
func (m *Mirror) Run(ctx context.Context) error {
	ch, err := m.bus.Subscribe(MirrorSubscriber, events.DefaultBuffer)
	if err != nil {
		return err
	}
	defer m.bus.Unsubscribe(MirrorSubscriber)

	// Full block write on start (identity re-assert).
	for _, id := range m.order {
		m.write(m.entries[id])
	}

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			m.handle(ev)

		case <-secTicker.C:
			m.tick()
		}
	}
}

// handle folds one engine event into the owning scale's snapshot.
func (m *Mirror) handle(ev events.Event) {
	switch e := ev.(type) {
	case events.ScaleUpdated:
		ent := m.entries[e.ScaleID]
		if ent == nil || !ent.scale.Enabled {
			return
		}
		prev := ent.snap
		ent.snap.Reading(e.State)
		recovered(&ent.snap)
		if ent.snap != prev {
			m.write(ent)
		}

	case events.ScaleStatusChanged:
		ent := m.entries[e.ScaleID]
		if ent == nil || !ent.scale.Enabled {
			return
		}
		prev := ent.snap
		if e.Online {
			ent.snap.Reading(ent.scale.State())
			recovered(&ent.snap)
		} else {
			ent.snap.Health = status.HealthError
			ent.snap.LastErrorCode = e.Code
		}
		if ent.snap != prev {
			m.write(ent)
		}
	}
}

// tick runs at 1 Hz: seconds_in_error counts up while not OK, and an OK
// scale whose reading has aged past the threshold turns stale.
// A scale that is live again recovers here too, since an unchanged reading
// or a dropped bus event produces no event to recover from.
func (m *Mirror) tick() {
	now := m.now()

	for _, id := range m.order {
		ent := m.entries[id]
		st := ent.scale.State()
		live := st.Online && st.IsOnline(now, m.threshold)

		switch ent.snap.Health {
		case status.HealthOK:
			if !st.IsOnline(now, m.threshold) {
				ent.snap.Health = status.HealthStale
				m.write(ent)
			}

		case status.HealthError, status.HealthStale:
			if live {
				ent.snap.Reading(st)
				recovered(&ent.snap)
				m.write(ent)
				continue
			}
			if ent.snap.SecondsInError < 65535 {
				ent.snap.SecondsInError++
				m.write(ent)
			}
		}
	}
}

func (m *Mirror) write(ent *mirrorEntry) {
	if err := ent.writer.WriteStatus(ent.snap); err != nil {
		m.log.Warn("status write failed", "scale", ent.scale.Label(), "error", err)
	}
}

// recovered resets the error fields of a scale that answers again.
func recovered(s *status.Snapshot) {
	s.Health = status.HealthOK
	s.LastErrorCode = 0
	s.SecondsInError = 0
}
