// internal/status/snapshot.go
package status

import (
	"math"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16

	NetGrams  int32
	TareGrams int32
	Flags     uint16
}

// Reading copies the weight fields of st into s.
func (s *Snapshot) Reading(st device.State) {
	s.NetGrams = grams(st.NetGrams)
	s.TareGrams = grams(st.TareGrams)

	var f uint16
	if st.Stable {
		f |= FlagStable
	}
	if st.NetFlag {
		f |= FlagNet
	}
	if st.ZeroFlag {
		f |= FlagZero
	}
	if st.Protocol == device.ProtocolWithTare {
		f |= FlagWithTare
	}
	s.Flags = f
}

// SameReading reports whether the reading slots of a and b match.
func SameReading(a, b Snapshot) bool {
	return a.NetGrams == b.NetGrams && a.TareGrams == b.TareGrams && a.Flags == b.Flags
}

// grams rounds to whole grams and saturates at the int32 range.
func grams(v float64) int32 {
	r := math.Round(v)
	switch {
	case r > math.MaxInt32:
		return math.MaxInt32
	case r < math.MinInt32:
		return math.MinInt32
	}
	return int32(r)
}
