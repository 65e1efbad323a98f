// internal/transport/transport.go

// Package transport opens byte links to scales.
//
// TCP is the normal path. Serial links are supported for bench setups where a
// scale hangs off an RS-232 adapter and speaks the same framed protocol.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

// Link is one open byte stream to a device.
type Link interface {
	io.ReadWriteCloser
	// SetDeadline bounds every pending and future Read/Write.
	// A zero time clears the deadline.
	SetDeadline(t time.Time) error
}

// Dialer opens a Link. One attempt per call: no retries.
type Dialer interface {
	Dial(ctx context.Context, address string, timeout time.Duration) (Link, error)
}

// ErrEmptyAddress is returned for a blank device address.
var ErrEmptyAddress = errors.New("transport: address required")

// NetDialer dials TCP.
type NetDialer struct{}

func (NetDialer) Dial(ctx context.Context, address string, timeout time.Duration) (Link, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrEmptyAddress
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// AutoDialer routes serial:// addresses to Serial and everything else to TCP.
type AutoDialer struct {
	TCP    Dialer
	Serial Dialer
}

// Default returns the dialer used in production.
func Default() Dialer {
	return AutoDialer{TCP: NetDialer{}, Serial: SerialDialer{}}
}

func (a AutoDialer) Dial(ctx context.Context, address string, timeout time.Duration) (Link, error) {
	if strings.HasPrefix(address, serialScheme) {
		return a.Serial.Dial(ctx, address, timeout)
	}
	return a.TCP.Dial(ctx, address, timeout)
}
