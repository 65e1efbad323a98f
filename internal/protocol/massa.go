// internal/protocol/massa.go
package protocol

import "encoding/binary"

// Command bytes.
const (
	CmdGetMassa byte = 0x23
	CmdAckMassa byte = 0x24
)

// Response payload geometry.
const (
	// MinMassaPayload is cmd(1) mass(4) division(1) stable(1) net(1) zero(1).
	MinMassaPayload = 9
	// TareMassaPayload adds tare(4) for tare-capable devices.
	TareMassaPayload = MinMassaPayload + 4
)

// Reading is one decoded GET_MASSA response.
type Reading struct {
	MassRaw  int32
	Division byte
	Stable   bool
	Net      bool
	Zero     bool

	// HasTare reports whether the payload carried the tare field.
	HasTare bool
	TareRaw int32

	NetGrams  float64
	TareGrams float64
}

// BuildGetMassa returns a complete GET_MASSA request frame.
func BuildGetMassa() []byte {
	return EncodeFrame([]byte{CmdGetMassa})
}

// DivisionMultiplier maps the division byte to a gram multiplier.
func DivisionMultiplier(b byte) float64 {
	switch b {
	case 0:
		return 0.1
	case 1:
		return 1
	case 2:
		return 10
	case 3:
		return 100
	case 4:
		return 1000
	default:
		return 1
	}
}

// ParseMassa decodes a GET_MASSA response payload.
func ParseMassa(payload []byte) (Reading, error) {
	if len(payload) < MinMassaPayload {
		return Reading{}, frameErr(ErrShortPayload, "got %d bytes, need %d", len(payload), MinMassaPayload)
	}
	if payload[0] != CmdAckMassa {
		return Reading{}, frameErr(ErrUnexpectedCommand, "got 0x%02X want 0x%02X", payload[0], CmdAckMassa)
	}

	r := Reading{
		MassRaw:  int32(binary.LittleEndian.Uint32(payload[1:5])),
		Division: payload[5],
		Stable:   payload[6] == 1,
		Net:      payload[7] != 0,
		Zero:     payload[8] != 0,
	}

	if len(payload) >= TareMassaPayload {
		r.HasTare = true
		r.TareRaw = int32(binary.LittleEndian.Uint32(payload[9:13]))
	}

	mul := DivisionMultiplier(r.Division)
	r.NetGrams = float64(r.MassRaw) * mul
	r.TareGrams = float64(r.TareRaw) * mul

	return r, nil
}

// EncodeMassa builds a GET_MASSA response payload. Used by simulators and tests.
func EncodeMassa(r Reading) []byte {
	n := MinMassaPayload
	if r.HasTare {
		n = TareMassaPayload
	}

	p := make([]byte, n)
	p[0] = CmdAckMassa
	binary.LittleEndian.PutUint32(p[1:5], uint32(r.MassRaw))
	p[5] = r.Division
	p[6] = boolByte(r.Stable)
	p[7] = boolByte(r.Net)
	p[8] = boolByte(r.Zero)
	if r.HasTare {
		binary.LittleEndian.PutUint32(p[9:13], uint32(r.TareRaw))
	}
	return p
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
