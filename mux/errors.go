package mux

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation is attempted outside
	// its legal channel state, such as a second process start request.
	ErrInvalidState = errors.New("sshmux: operation invalid in current channel state")

	// ErrRequestRejected is returned when the peer answers a channel
	// request with a failure message.
	ErrRequestRejected = errors.New("sshmux: channel request rejected by peer")

	// ErrTransportClosed is returned from blocked reads, writes and waits
	// when the underlying transport fails before the close handshake
	// completes.
	ErrTransportClosed = errors.New("sshmux: transport closed")

	// ErrWindowExceeded signals a broken window invariant. It indicates a
	// programming error, not a runtime condition.
	ErrWindowExceeded = errors.New("sshmux: window accounting exceeded")
)

// ProtocolError reports a malformed or out-of-sequence message from the
// peer. A protocol error tears down the offending channel but leaves the
// other channels on the session intact.
type ProtocolError struct {
	Desc string
}

func (e *ProtocolError) Error() string {
	return "sshmux: protocol error: " + e.Desc
}

func protocolErrorf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Desc: fmt.Sprintf(format, args...)}
}
