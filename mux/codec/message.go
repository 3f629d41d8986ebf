// Package codec implements encoding and decoding of the RFC 4254 channel
// sub-protocol messages, carried over any ordered byte transport.
package codec

import "io"

// Message numbers assigned to the connection protocol by RFC 4253 section 12.
const (
	msgChannelOpen         = 90
	msgChannelOpenConfirm  = 91
	msgChannelOpenFailure  = 92
	msgChannelWindowAdjust = 93
	msgChannelData         = 94
	msgChannelExtendedData = 95
	msgChannelEOF          = 96
	msgChannelClose        = 97
	msgChannelRequest      = 98
	msgChannelSuccess      = 99
	msgChannelFailure      = 100
)

// ExtendedDataStderr is the extended data type code assigned to the
// standard error stream by RFC 4254 section 5.2. It is the only type
// code with a standard assignment.
const ExtendedDataStderr uint32 = 1

var (
	// Debug can be set to get message frames as they're encoded and decoded
	Debug io.Writer
)

type Message interface {
	Channel() (uint32, bool)
	String() string
	Bytes() []byte
}
