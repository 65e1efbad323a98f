// internal/transport/serial.go
package transport

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	serialScheme      = "serial://"
	defaultSerialBaud = 9600
)

// SerialDialer opens serial ports addressed as serial:///dev/ttyUSB0?baud=9600
// (or serial://COM3?baud=19200 on Windows).
type SerialDialer struct{}

// SerialTarget is a parsed serial address.
type SerialTarget struct {
	Port string
	Baud int
}

// ParseSerialAddress splits a serial:// address into port and baud rate.
func ParseSerialAddress(address string) (SerialTarget, error) {
	if !strings.HasPrefix(address, serialScheme) {
		return SerialTarget{}, fmt.Errorf("transport: not a serial address: %q", address)
	}

	u, err := url.Parse(address)
	if err != nil {
		return SerialTarget{}, fmt.Errorf("transport: serial address: %w", err)
	}

	port := u.Host + u.Path
	if port == "" {
		return SerialTarget{}, ErrEmptyAddress
	}

	baud := defaultSerialBaud
	if v := u.Query().Get("baud"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return SerialTarget{}, fmt.Errorf("transport: invalid baud %q", v)
		}
		baud = n
	}

	return SerialTarget{Port: port, Baud: baud}, nil
}

func (SerialDialer) Dial(ctx context.Context, address string, _ time.Duration) (Link, error) {
	target, err := ParseSerialAddress(address)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := serial.Open(target.Port, &serial.Mode{BaudRate: target.Baud})
	if err != nil {
		return nil, err
	}
	return &serialLink{port: port}, nil
}

// serialPort is the part of serial.Port the link uses.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// readSlice bounds one blocking port read. The port only knows relative
// read timeouts, so a deadline moved while a read is blocked takes effect
// within one slice.
const readSlice = 100 * time.Millisecond

// serialLink adapts serial.Port to Link.
type serialLink struct {
	port serialPort

	mu       sync.Mutex
	deadline time.Time
}

func (s *serialLink) Read(p []byte) (int, error) {
	for {
		s.mu.Lock()
		deadline := s.deadline
		s.mu.Unlock()

		wait := readSlice
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			wait = min(wait, left)
		}
		if err := s.port.SetReadTimeout(wait); err != nil {
			return 0, err
		}

		// go.bug.st/serial reports an elapsed timeout as a zero-length read.
		n, err := s.port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (s *serialLink) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialLink) Close() error {
	return s.port.Close()
}

func (s *serialLink) SetDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	return nil
}
