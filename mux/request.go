package mux

import (
	"bytes"
	"encoding/binary"

	"github.com/wiremux/sshmux/mux/codec"
)

// Channel request types from RFC 4254 section 6.
const (
	requestShell      = "shell"
	requestExec       = "exec"
	requestSubsystem  = "subsystem"
	requestEnv        = "env"
	requestPty        = "pty-req"
	requestExitStatus = "exit-status"
	requestExitSignal = "exit-signal"
)

// Signal describes how a remote process was terminated.
type Signal struct {
	Name       string
	CoreDumped bool
	Message    string
	Lang       string
}

// TerminalModes maps terminal mode opcodes (RFC 4254 section 8) to
// their argument values for pty requests.
type TerminalModes map[uint8]uint32

// ttyOpEnd terminates an encoded terminal mode list.
const ttyOpEnd = 0

// Request is a peer-issued channel request awaiting service by the
// channel consumer. Exit reports are consumed internally and never
// surface as a Request.
type Request struct {
	Type      string
	WantReply bool
	Payload   []byte

	ch      *channel
	replied bool
}

// Reply answers a request. ok reports whether the request was honored.
// Replying to a request that wants no reply is a no-op; replying twice
// returns ErrInvalidState.
func (r *Request) Reply(ok bool) error {
	if !r.WantReply {
		return nil
	}
	if r.replied {
		return ErrInvalidState
	}
	r.replied = true
	if ok {
		return r.ch.send(codec.SuccessMessage{ChannelID: r.ch.remoteId})
	}
	return r.ch.send(codec.FailureMessage{ChannelID: r.ch.remoteId})
}

// Shell asks the peer to start the default shell on the channel.
func (ch *channel) Shell() error {
	return ch.start(requestShell, nil)
}

// Exec asks the peer to run command on the channel.
func (ch *channel) Exec(command string) error {
	return ch.start(requestExec, marshalString(command))
}

// Subsystem asks the peer to associate the named subsystem with the
// channel.
func (ch *channel) Subsystem(name string) error {
	return ch.start(requestSubsystem, marshalString(name))
}

// start sends a one-shot process request. A channel carries at most one
// started process; further attempts fail with ErrInvalidState. A
// rejected request leaves the channel free for another attempt.
func (ch *channel) start(kind string, payload []byte) error {
	ch.reqMu.Lock()
	started := ch.started
	ch.reqMu.Unlock()
	if started {
		return ErrInvalidState
	}

	ok, err := ch.sendRequest(kind, true, payload)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRequestRejected
	}

	ch.reqMu.Lock()
	ch.started = true
	ch.startKind = kind
	ch.reqMu.Unlock()
	return nil
}

// Setenv requests an environment variable for a process started later.
// Success means the request was accepted for delivery, not that the
// peer applied it.
func (ch *channel) Setenv(name, value string) error {
	ch.reqMu.Lock()
	started := ch.started
	ch.reqMu.Unlock()
	if started {
		return ErrInvalidState
	}

	buf := new(bytes.Buffer)
	putString(buf, name)
	putString(buf, value)
	_, err := ch.sendRequest(requestEnv, false, buf.Bytes())
	return err
}

// RequestPty requests a pseudo-terminal. Like Setenv it is best-effort.
func (ch *channel) RequestPty(term string, modes TerminalModes, cols, rows, widthPx, heightPx uint32) error {
	buf := new(bytes.Buffer)
	putString(buf, term)
	binary.Write(buf, binary.BigEndian, struct {
		Cols, Rows, WidthPx, HeightPx uint32
	}{cols, rows, widthPx, heightPx})
	putString(buf, string(marshalTerminalModes(modes)))
	_, err := ch.sendRequest(requestPty, false, buf.Bytes())
	return err
}

// ReportExitStatus tells the peer the exit status of the process hosted
// on this side of the channel.
func (ch *channel) ReportExitStatus(status uint32) error {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, status)
	_, err := ch.sendRequest(requestExitStatus, false, buf.Bytes())
	return err
}

// ReportExitSignal tells the peer the signal that terminated the
// process hosted on this side of the channel.
func (ch *channel) ReportExitSignal(sig Signal) error {
	buf := new(bytes.Buffer)
	putString(buf, sig.Name)
	if sig.CoreDumped {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	putString(buf, sig.Message)
	putString(buf, sig.Lang)
	_, err := ch.sendRequest(requestExitSignal, false, buf.Bytes())
	return err
}

// ExitStatus returns the peer-reported exit status, if one has arrived.
func (ch *channel) ExitStatus() (uint32, bool) {
	ch.reqMu.Lock()
	defer ch.reqMu.Unlock()
	if ch.exitStatus == nil {
		return 0, false
	}
	return *ch.exitStatus, true
}

// ExitSignal returns the peer-reported terminating signal, if one has
// arrived.
func (ch *channel) ExitSignal() (Signal, bool) {
	ch.reqMu.Lock()
	defer ch.reqMu.Unlock()
	if ch.exitSignal == nil {
		return Signal{}, false
	}
	return *ch.exitSignal, true
}

// sendRequest sends a channel request and, if wantReply is set, blocks
// until the peer's success or failure reply arrives.
func (ch *channel) sendRequest(name string, wantReply bool, payload []byte) (bool, error) {
	if err := ch.send(codec.RequestMessage{
		ChannelID:   ch.remoteId,
		RequestType: name,
		WantReply:   wantReply,
		Payload:     payload,
	}); err != nil {
		return false, err
	}
	if !wantReply {
		return true, nil
	}

	m, ok := <-ch.msg
	if !ok {
		return false, ErrTransportClosed
	}
	switch m.(type) {
	case *codec.SuccessMessage:
		return true, nil
	case *codec.FailureMessage:
		return false, nil
	default:
		return false, protocolErrorf("unexpected response to channel request: %v", m)
	}
}

// handleRequest consumes exit reports and queues everything else for
// the channel consumer. It runs on the session's demultiplexing
// goroutine and must not block.
func (ch *channel) handleRequest(m *codec.RequestMessage) error {
	switch m.RequestType {
	case requestExitStatus:
		status, _, ok := parseUint32(m.Payload)
		if !ok {
			return protocolErrorf("malformed exit-status payload")
		}
		ch.reqMu.Lock()
		// Last write wins; the report is informational.
		ch.exitStatus = &status
		ch.reqMu.Unlock()

	case requestExitSignal:
		sig, ok := parseExitSignal(m.Payload)
		if !ok {
			return protocolErrorf("malformed exit-signal payload")
		}
		ch.reqMu.Lock()
		ch.exitSignal = &sig
		ch.reqMu.Unlock()

	default:
		req := &Request{
			Type:      m.RequestType,
			WantReply: m.WantReply,
			Payload:   m.Payload,
			ch:        ch,
		}
		select {
		case ch.incomingRequests <- req:
		default:
			// The consumer is not servicing requests; refuse rather
			// than stall the demultiplexing loop.
			if m.WantReply {
				return ch.send(codec.FailureMessage{ChannelID: ch.remoteId})
			}
		}
	}
	return nil
}

func marshalTerminalModes(modes TerminalModes) []byte {
	buf := new(bytes.Buffer)
	for op, val := range modes {
		buf.WriteByte(op)
		binary.Write(buf, binary.BigEndian, val)
	}
	buf.WriteByte(ttyOpEnd)
	return buf.Bytes()
}

func marshalString(s string) []byte {
	buf := new(bytes.Buffer)
	putString(buf, s)
	return buf.Bytes()
}

func putString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

func parseUint32(b []byte) (uint32, []byte, bool) {
	if len(b) < 4 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint32(b), b[4:], true
}

func parseString(b []byte) (string, []byte, bool) {
	length, rest, ok := parseUint32(b)
	if !ok || uint32(len(rest)) < length {
		return "", nil, false
	}
	return string(rest[:length]), rest[length:], true
}

func parseExitSignal(b []byte) (Signal, bool) {
	var sig Signal
	var ok bool
	if sig.Name, b, ok = parseString(b); !ok {
		return Signal{}, false
	}
	if len(b) < 1 {
		return Signal{}, false
	}
	sig.CoreDumped = b[0] != 0
	b = b[1:]
	if sig.Message, b, ok = parseString(b); !ok {
		return Signal{}, false
	}
	if sig.Lang, _, ok = parseString(b); !ok {
		return Signal{}, false
	}
	return sig, true
}
