// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// Frame rejection reasons. Match with errors.Is against a *FrameError.
var (
	ErrBadHeader         = errors.New("bad header")
	ErrEmptyPayload      = errors.New("empty payload")
	ErrShortFrame        = errors.New("short frame")
	ErrChecksum          = errors.New("checksum mismatch")
	ErrShortPayload      = errors.New("short payload")
	ErrUnexpectedCommand = errors.New("unexpected command")
)

// FrameError reports a frame that was received but cannot be trusted.
// The poller treats it exactly like a broken connection.
type FrameError struct {
	Reason error
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("scale frame: %v", e.Reason)
	}
	return fmt.Sprintf("scale frame: %v (%s)", e.Reason, e.Detail)
}

func (e *FrameError) Unwrap() error { return e.Reason }

func frameErr(reason error, format string, args ...any) *FrameError {
	return &FrameError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
