// internal/poller/types.go
package poller

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/protocol"
)

// MinPollInterval is the floor applied to the configured poll interval.
const MinPollInterval = 100 * time.Millisecond

// Config is the runtime config shared read-only by every scale loop.
type Config struct {
	PollInterval      time.Duration
	ConnectTimeout    time.Duration
	OfflineThreshold  time.Duration
	ReconnectDelay    time.Duration
	DeadbandGrams     float64
	AutoZeroOnConnect bool
}

// DefaultConfig holds the factory defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     200 * time.Millisecond,
		ConnectTimeout:   1500 * time.Millisecond,
		OfflineThreshold: 3 * time.Second,
		ReconnectDelay:   2 * time.Second,
		DeadbandGrams:    0,
	}
}

func (c Config) interval() time.Duration {
	if c.PollInterval < MinPollInterval {
		return MinPollInterval
	}
	return c.PollInterval
}

// PollResult is the outcome of one request/response round-trip.
type PollResult struct {
	ScaleID string
	At      time.Time

	Reading protocol.Reading
	Err     error // non-nil means the round-trip failed
}

// ErrorKind drives the loop's retry decision.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindConnection
	KindFrame
	KindTimeout
	KindShutdown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection"
	case KindFrame:
		return "frame"
	case KindTimeout:
		return "timeout"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Code is the numeric error code exported to the status mirror.
func (k ErrorKind) Code() uint16 {
	return uint16(k)
}

// Classify maps err to a kind. ctx is the loop's shutdown context: if it is
// done, the error is shutdown no matter what the I/O layer reported.
func Classify(ctx context.Context, err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if ctx.Err() != nil {
		return KindShutdown
	}

	var fe *protocol.FrameError
	if errors.As(err, &fe) {
		return KindFrame
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	return KindConnection
}

// Observer receives per-scale counters. Implemented by the metrics package.
type Observer interface {
	PollSucceeded(scaleID string)
	PollFailed(scaleID string, kind ErrorKind)
	ScaleOnline(scaleID string, online bool)
}

type nopObserver struct{}

func (nopObserver) PollSucceeded(string)         {}
func (nopObserver) PollFailed(string, ErrorKind) {}
func (nopObserver) ScaleOnline(string, bool)     {}
