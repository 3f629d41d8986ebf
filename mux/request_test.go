package mux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "echo hi", "日本語"} {
		got, rest, ok := parseString(marshalString(s))
		require.True(t, ok)
		require.Equal(t, s, got)
		require.Empty(t, rest)
	}
}

func TestParseStringTruncated(t *testing.T) {
	_, _, ok := parseString([]byte{0, 0})
	require.False(t, ok)

	// Length prefix larger than the remaining bytes.
	_, _, ok = parseString([]byte{0, 0, 0, 9, 'x'})
	require.False(t, ok)
}

func TestParseUint32Short(t *testing.T) {
	_, _, ok := parseUint32([]byte{1, 2, 3})
	require.False(t, ok)

	v, rest, ok := parseUint32([]byte{0, 0, 1, 0, 0xff})
	require.True(t, ok)
	require.Equal(t, uint32(256), v)
	require.Equal(t, []byte{0xff}, rest)
}

func TestMarshalTerminalModes(t *testing.T) {
	enc := marshalTerminalModes(TerminalModes{128: 19200})
	require.Equal(t, []byte{128, 0, 0, 0x4b, 0, ttyOpEnd}, enc)

	// An empty list still carries the terminator.
	require.Equal(t, []byte{ttyOpEnd}, marshalTerminalModes(nil))
}

func TestParseExitSignal(t *testing.T) {
	buf := new(bytes.Buffer)
	putString(buf, "TERM")
	buf.WriteByte(1)
	putString(buf, "terminated")
	putString(buf, "en_US")

	sig, ok := parseExitSignal(buf.Bytes())
	require.True(t, ok)
	require.Equal(t, Signal{
		Name:       "TERM",
		CoreDumped: true,
		Message:    "terminated",
		Lang:       "en_US",
	}, sig)
}

func TestParseExitSignalTruncated(t *testing.T) {
	buf := new(bytes.Buffer)
	putString(buf, "KILL")
	buf.WriteByte(0)

	_, ok := parseExitSignal(buf.Bytes())
	require.False(t, ok)
}

func TestRequestReplyOnce(t *testing.T) {
	a, b := pair(t, nil)
	chA, chB := openAccept(t, a, b)

	go func() {
		chA.Shell()
	}()

	req := <-chB.Requests()
	require.True(t, req.WantReply)
	require.NoError(t, req.Reply(true))
	require.ErrorIs(t, req.Reply(true), ErrInvalidState)
}
