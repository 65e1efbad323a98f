// internal/protocol/frame.go
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame layout (integers little-endian):
//
//	Header(3) = F8 55 CE
//	Len(2)
//	Payload(Len)
//	CRC(2) over Payload only
const (
	headerLen   = 3
	lengthLen   = 2
	checksumLen = 2

	// Overhead is the number of non-payload bytes in a frame.
	Overhead = headerLen + lengthLen + checksumLen
)

var header = [headerLen]byte{0xF8, 0x55, 0xCE}

// EncodeFrame wraps payload into a complete frame.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, 0, Overhead+len(payload))
	out = append(out, header[:]...)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(payload)))
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint16(out, Checksum(payload))
	return out
}

// DecodeFrame validates a complete frame held in memory and returns its payload.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < headerLen+lengthLen {
		return nil, frameErr(ErrShortFrame, "got %d bytes", len(frame))
	}
	if err := checkHeader(frame[:headerLen]); err != nil {
		return nil, err
	}

	n := int(binary.LittleEndian.Uint16(frame[headerLen:]))
	if n == 0 {
		return nil, &FrameError{Reason: ErrEmptyPayload}
	}

	body := frame[headerLen+lengthLen:]
	if len(body) < n+checksumLen {
		return nil, frameErr(ErrShortFrame, "declared %d, got %d", n, len(body)-checksumLen)
	}

	return verify(body[:n], body[n:n+checksumLen])
}

// ReadFrame reads exactly one frame from r and returns its payload.
//
// A stream that ends mid-frame is a *FrameError. Any other read error
// (deadline, reset) is returned wrapped so callers can still classify it.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [headerLen + lengthLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, readErr(err, "header")
	}
	if err := checkHeader(head[:headerLen]); err != nil {
		return nil, err
	}

	n := int(binary.LittleEndian.Uint16(head[headerLen:]))
	if n == 0 {
		return nil, &FrameError{Reason: ErrEmptyPayload}
	}

	body := make([]byte, n+checksumLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, readErr(err, "payload")
	}

	return verify(body[:n], body[n:])
}

func checkHeader(b []byte) error {
	if b[0] != header[0] || b[1] != header[1] || b[2] != header[2] {
		return frameErr(ErrBadHeader, "% X", b)
	}
	return nil
}

func verify(payload, crc []byte) ([]byte, error) {
	got := binary.LittleEndian.Uint16(crc)
	want := Checksum(payload)
	if got != want {
		return nil, frameErr(ErrChecksum, "got 0x%04X want 0x%04X", got, want)
	}
	return payload, nil
}

func readErr(err error, part string) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return frameErr(ErrShortFrame, "truncated %s", part)
	}
	return fmt.Errorf("scale frame: read %s: %w", part, err)
}
