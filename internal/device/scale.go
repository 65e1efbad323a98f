// internal/device/scale.go

// Package device holds the scale fleet and each scale's live state.
package device

import (
	"sync/atomic"
	"time"
)

// Protocol is the response variant a scale speaks.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	ProtocolWithTare
	ProtocolWithoutTare
)

func (p Protocol) String() string {
	switch p {
	case ProtocolWithTare:
		return "with_tare"
	case ProtocolWithoutTare:
		return "without_tare"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of one scale's live reading.
//
// A zero LastUpdate means the scale was never polled successfully and is
// therefore offline regardless of any other field.
type State struct {
	NetGrams  float64
	TareGrams float64
	Stable    bool

	// Raw protocol status flags.
	NetFlag  bool
	ZeroFlag bool

	Protocol Protocol

	LastUpdate      time.Time
	Online          bool
	StatusChangedAt time.Time
}

// IsOnline reports whether the last successful update is within threshold.
func (s State) IsOnline(now time.Time, threshold time.Duration) bool {
	if s.LastUpdate.IsZero() {
		return false
	}
	return now.Sub(s.LastUpdate) <= threshold
}

// Scale is one weighing device.
type Scale struct {
	ID      string
	Name    string
	Address string
	Enabled bool

	// Slot is the status block index used by the Modbus status mirror.
	Slot *uint16

	state atomic.Pointer[State]
}

// NewScale returns an enabled scale with an empty state.
func NewScale(id, name, address string) *Scale {
	s := &Scale{ID: id, Name: name, Address: address, Enabled: true}
	s.state.Store(&State{})
	return s
}

// State returns the current snapshot. Safe from any goroutine.
func (s *Scale) State() State {
	if p := s.state.Load(); p != nil {
		return *p
	}
	return State{}
}

// Publish swaps in a new snapshot. Only the scale's poll loop calls this.
func (s *Scale) Publish(st State) {
	s.state.Store(&st)
}

// IsOnline is State().IsOnline(time.Now(), threshold).
func (s *Scale) IsOnline(threshold time.Duration) bool {
	return s.State().IsOnline(time.Now(), threshold)
}

// Label is the name for humans, falling back to the id.
func (s *Scale) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
