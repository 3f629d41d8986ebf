package mux

import (
	"context"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wiremux/sshmux/mux/codec"
)

type channelDirection uint8

const (
	channelInbound channelDirection = iota
	channelOutbound
)

const (
	minPacketLength = 9
	maxPacketLength = 1 << 20

	// minWindowAdjust is the smallest window credit worth its own
	// adjust message. Smaller credits are coalesced with the next data
	// consumption so byte-at-a-time readers don't cause an adjust storm.
	minWindowAdjust = 1024

	// chanSize is the buffering of the per-channel message and request
	// queues, so request replies don't stall the demultiplexing loop.
	chanSize = 16
)

func min(a uint32, b int) uint32 {
	if a < uint32(b) {
		return a
	}
	return uint32(b)
}

// Channel is one flow-controlled, bidirectional logical stream
// multiplexed over a session. A Channel is not designed for concurrent
// readers or concurrent writers on the same direction; each direction
// is expected to be driven by one goroutine.
type Channel interface {
	io.ReadWriteCloser

	// ID returns the unique identifier of this channel within the session.
	ID() uint32

	// CloseWrite signals the end of sending data.
	// The other side may still send data.
	CloseWrite() error

	// CloseWait initiates the close handshake and blocks until the peer
	// acknowledges it or ctx expires.
	CloseWait(ctx context.Context) error

	// WaitEOF blocks until the peer signals the end of its data, the
	// transport fails, or ctx expires. A ctx expiry leaves the handshake
	// state untouched; a retried wait observes the latest state.
	WaitEOF(ctx context.Context) error

	// WaitClosed blocks until the close handshake completes in both
	// directions, the transport fails, or ctx expires.
	WaitClosed(ctx context.Context) error

	// ReadExtended reads from the extended (stderr) substream. It is
	// meaningful only in ExtendedDataNormal mode; in the other modes
	// there is no separate substream and it returns io.EOF.
	ReadExtended(data []byte) (int, error)

	// WriteExtended writes to the peer's extended (stderr) substream.
	WriteExtended(data []byte) (int, error)

	// SetExtendedDataMode reconfigures handling of inbound extended
	// data. The new mode applies to subsequently arriving bytes only.
	SetExtendedDataMode(mode ExtendedDataMode)

	// Shell, Exec and Subsystem ask the peer to start a process on the
	// channel. At most one of them may succeed per channel.
	Shell() error
	Exec(command string) error
	Subsystem(name string) error

	// Setenv requests an environment variable for a process started
	// later. The peer may silently ignore it.
	Setenv(name, value string) error

	// RequestPty requests a pseudo-terminal for a process started
	// later. The peer may silently ignore it.
	RequestPty(term string, modes TerminalModes, cols, rows, widthPx, heightPx uint32) error

	// ExitStatus returns the peer-reported process exit status, if any.
	ExitStatus() (uint32, bool)

	// ExitSignal returns the peer-reported terminating signal, if any.
	ExitSignal() (Signal, bool)

	// ReportExitStatus and ReportExitSignal inform the peer how the
	// process hosted on this side of the channel ended.
	ReportExitStatus(status uint32) error
	ReportExitSignal(sig Signal) error

	// Requests delivers peer-issued channel requests that are not
	// consumed internally. The channel is closed on release.
	Requests() <-chan *Request

	// ReadWindow and WriteWindow report the current receive and send
	// window sizes. They never block and have no side effects.
	ReadWindow() uint32
	WriteWindow() uint32
}

// channel is an implementation of the Channel interface that works
// with the session class.
type channel struct {

	// R/O after creation
	localId, remoteId uint32

	// maxIncomingPayload and maxRemotePayload are the maximum
	// payload sizes of normal and extended data packets for
	// receiving and sending, respectively.
	maxIncomingPayload uint32
	maxRemotePayload   uint32

	session *Session

	// direction contains either channelOutbound, for channels created
	// locally, or channelInbound, for channels created by the peer.
	direction channelDirection

	// Pending internal channel messages: open replies and request replies.
	msg chan codec.Message

	// Peer-issued channel requests awaiting service by the consumer.
	incomingRequests chan *Request

	// thread-safe data
	remoteWin window
	pending   *buffer
	stderr    *buffer
	ext       extendedRouter

	// windowMu protects myWindow and pendingAdjust, the receive-side
	// flow-control state.
	windowMu      sync.Mutex
	myWindow      uint32
	initialWindow uint32
	pendingAdjust uint32

	// writeMu serializes calls to session.enc.Encode() and protects
	// sentEOF and sentClose.
	writeMu   sync.Mutex
	sentEOF   bool
	sentClose bool

	// hs tracks the EOF/close shutdown lattice. Signals derived from it
	// are delivered through eofSig and closedSig, which close exactly once.
	hs          handshake
	eofOnce     sync.Once
	eofSig      chan struct{}
	eofErr      error
	releaseOnce sync.Once
	closedSig   chan struct{}
	doneErr     error

	// acceptedSig is closed by Session.Accept when the consumer takes
	// ownership of an inbound channel.
	acceptedSig chan struct{}

	// reqMu protects the process lifecycle state.
	reqMu      sync.Mutex
	started    bool
	startKind  string
	exitStatus *uint32
	exitSignal *Signal
}

// ID returns the unique identifier of this channel
// within the session
func (ch *channel) ID() uint32 {
	return ch.localId
}

func (ch *channel) Requests() <-chan *Request {
	return ch.incomingRequests
}

// ReadWindow returns the number of bytes the peer may still send before
// this side must grant more credit.
func (ch *channel) ReadWindow() uint32 {
	ch.windowMu.Lock()
	defer ch.windowMu.Unlock()
	return ch.myWindow
}

// WriteWindow returns the number of bytes this side may still send
// before the peer must grant more credit.
func (ch *channel) WriteWindow() uint32 {
	return ch.remoteWin.available()
}

func (ch *channel) SetExtendedDataMode(mode ExtendedDataMode) {
	ch.ext.setMode(mode)
}

// CloseWrite signals the end of sending data.
// The other side may still send data.
// Calling CloseWrite more than once is a no-op.
func (ch *channel) CloseWrite() error {
	ch.writeMu.Lock()
	if ch.sentEOF || ch.sentClose {
		ch.writeMu.Unlock()
		return nil
	}
	ch.sentEOF = true
	ch.writeMu.Unlock()

	ch.hs.apply(localEOF)
	err := ch.send(codec.EOFMessage{ChannelID: ch.remoteId})
	if err == io.EOF {
		err = nil
	}
	return err
}

// Close signals end of channel use. No data may be sent after this
// call. Close does not wait for the peer's acknowledgment; see
// CloseWait and WaitClosed. Calling Close more than once is a no-op.
func (ch *channel) Close() error {
	if !ch.hs.apply(localClose) {
		return nil
	}
	// Closing implies no more data in our direction, whether or not an
	// explicit EOF went out first.
	ch.hs.apply(localEOF)
	err := ch.send(codec.CloseMessage{ChannelID: ch.remoteId})
	if err == io.EOF {
		err = nil
	}
	return err
}

// CloseWait initiates the close handshake and blocks until it completes.
func (ch *channel) CloseWait(ctx context.Context) error {
	if err := ch.Close(); err != nil {
		return err
	}
	return ch.WaitClosed(ctx)
}

// WaitEOF blocks until the peer has signaled the end of its data.
func (ch *channel) WaitEOF(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch.eofSig:
		return ch.eofErr
	}
}

// WaitClosed blocks until the channel is fully released.
func (ch *channel) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch.closedSig:
		return ch.doneErr
	}
}

// Write writes len(data) bytes to the channel. Write blocks while the
// remote window is exhausted and resumes as the peer grants credit, so
// it returns short only on error.
func (ch *channel) Write(data []byte) (n int, err error) {
	return ch.writeData(data, false)
}

// WriteExtended writes len(data) bytes to the peer's extended (stderr)
// substream, with the same flow-control contract as Write.
func (ch *channel) WriteExtended(data []byte) (n int, err error) {
	return ch.writeData(data, true)
}

func (ch *channel) writeData(data []byte, extended bool) (n int, err error) {
	ch.writeMu.Lock()
	sentEOF := ch.sentEOF || ch.sentClose
	ch.writeMu.Unlock()
	if sentEOF {
		return 0, io.EOF
	}

	for len(data) > 0 {
		space := min(ch.maxRemotePayload, len(data))
		if space, err = ch.remoteWin.reserve(space); err != nil {
			return n, err
		}

		toSend := data[:space]

		var msg codec.Message
		if extended {
			msg = codec.ExtendedDataMessage{
				ChannelID: ch.remoteId,
				DataType:  codec.ExtendedDataStderr,
				Length:    uint32(len(toSend)),
				Data:      toSend,
			}
		} else {
			msg = codec.DataMessage{
				ChannelID: ch.remoteId,
				Length:    uint32(len(toSend)),
				Data:      toSend,
			}
		}
		if err = ch.send(msg); err != nil {
			return n, err
		}

		n += len(toSend)
		data = data[len(toSend):]
	}

	return n, err
}

// Read reads up to len(data) bytes from the channel. After the peer
// signals EOF and the buffer is drained, Read returns io.EOF.
func (c *channel) Read(data []byte) (n int, err error) {
	n, err = c.pending.Read(data)

	if n > 0 {
		err = c.adjustWindow(uint32(n))
		// sendWindowAdjust can return io.EOF if the remote
		// peer has closed the connection, however we want to
		// defer forwarding io.EOF to the caller of Read until
		// the buffer has been drained.
		if n > 0 && err == io.EOF {
			err = nil
		}
	}
	return n, err
}

// ReadExtended reads up to len(data) bytes from the extended (stderr)
// substream. Outside ExtendedDataNormal mode there is no separate
// substream, so it reports io.EOF rather than leaving io.Copy-style
// callers spinning on empty reads.
func (c *channel) ReadExtended(data []byte) (n int, err error) {
	if c.ext.currentMode() != ExtendedDataNormal {
		return 0, io.EOF
	}
	n, err = c.stderr.Read(data)

	if n > 0 {
		err = c.adjustWindow(uint32(n))
		if n > 0 && err == io.EOF {
			err = nil
		}
	}
	return n, err
}

// send writes a message frame. If the message is a channel close, it
// updates sentClose. This method takes the lock c.writeMu.
func (ch *channel) send(msg codec.Message) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()

	if ch.sentClose {
		return io.EOF
	}

	if _, ok := msg.(codec.CloseMessage); ok {
		ch.sentClose = true
	}

	return ch.session.enc.Encode(msg)
}

// adjustWindow returns consumed bytes to the peer's send budget. Credits
// below minWindowAdjust (or half the initial window, whichever is
// smaller) stay pending and flush with a later consumption.
func (c *channel) adjustWindow(n uint32) error {
	c.windowMu.Lock()
	c.pendingAdjust += n
	grant := c.pendingAdjust
	if grant < minWindowAdjust && grant <= c.initialWindow/2 {
		c.windowMu.Unlock()
		return nil
	}
	c.pendingAdjust = 0
	c.myWindow += grant
	// Consumed plus outstanding credit always equals the initial
	// window, so exceeding it means the accounting is broken.
	if c.myWindow > c.initialWindow {
		c.windowMu.Unlock()
		return ErrWindowExceeded
	}
	c.windowMu.Unlock()
	return c.send(codec.WindowAdjustMessage{
		ChannelID:       c.remoteId,
		AdditionalBytes: grant,
	})
}

// signalEOF marks the remote end-of-data, releasing WaitEOF callers.
func (ch *channel) signalEOF(err error) {
	ch.eofOnce.Do(func() {
		ch.eofErr = err
		close(ch.eofSig)
	})
}

// release frees the channel's buffered state and unblocks every waiter.
// It runs exactly once, either when the close handshake completes or
// when the transport tears down.
func (ch *channel) release(err error) {
	ch.releaseOnce.Do(func() {
		ch.pending.close(err)
		ch.stderr.close(err)

		ch.writeMu.Lock()
		ch.sentClose = true
		ch.writeMu.Unlock()

		// Unblock writers.
		winErr := err
		if winErr == nil {
			winErr = io.EOF
		}
		ch.remoteWin.close(winErr)

		ch.signalEOF(err)

		fields := log.Fields{
			"channel": ch.localId,
			"state":   ch.hs.String(),
		}
		ch.reqMu.Lock()
		if ch.startKind != "" {
			fields["process"] = ch.startKind
		}
		ch.reqMu.Unlock()
		ch.session.log().WithFields(fields).Debug("Released channel")

		ch.doneErr = err
		close(ch.closedSig)
		close(ch.msg)
		close(ch.incomingRequests)
	})
}

// responseMessageReceived is called when a success or failure message is
// received on a channel to check that such a message is reasonable for the
// given channel.
func (ch *channel) responseMessageReceived() error {
	if ch.direction == channelInbound {
		return protocolErrorf("channel response message received on inbound channel")
	}
	return nil
}

// handle dispatches one inbound message for this channel. It runs on
// the session's demultiplexing goroutine.
func (ch *channel) handle(msg codec.Message) error {
	switch m := msg.(type) {
	case *codec.DataMessage:
		return ch.handleData(m.Length, m.Data, false, 0)

	case *codec.ExtendedDataMessage:
		return ch.handleData(m.Length, m.Data, true, m.DataType)

	case *codec.EOFMessage:
		if !ch.hs.apply(remoteEOF) {
			return protocolErrorf("duplicate EOF for channel %d", ch.localId)
		}
		ch.pending.eof()
		ch.stderr.eof()
		ch.signalEOF(nil)
		return nil

	case *codec.CloseMessage:
		return ch.handleClose()

	case *codec.WindowAdjustMessage:
		if !ch.remoteWin.add(m.AdditionalBytes) {
			return protocolErrorf("invalid window update for %d bytes", m.AdditionalBytes)
		}
		return nil

	case *codec.RequestMessage:
		return ch.handleRequest(m)

	case *codec.SuccessMessage, *codec.FailureMessage:
		ch.msg <- msg
		return nil

	case *codec.OpenConfirmMessage:
		if err := ch.responseMessageReceived(); err != nil {
			return err
		}
		if m.MaxPacketSize < minPacketLength || m.MaxPacketSize > maxPacketLength {
			return protocolErrorf("invalid MaxPacketSize %d from peer", m.MaxPacketSize)
		}
		ch.remoteId = m.SenderID
		ch.maxRemotePayload = m.MaxPacketSize
		ch.remoteWin.add(m.WindowSize)
		ch.msg <- m
		return nil

	case *codec.OpenFailureMessage:
		if err := ch.responseMessageReceived(); err != nil {
			return err
		}
		ch.session.chans.remove(ch.localId)
		ch.msg <- m
		return nil

	default:
		return protocolErrorf("invalid channel message %v", msg)
	}
}

// handleClose drives receipt of the peer's close. A close implies the
// peer will send no more data. The channel is released here, on the
// loop goroutine, once both directions have sent their close.
func (ch *channel) handleClose() error {
	if !ch.hs.apply(remoteClose) {
		return protocolErrorf("duplicate close for channel %d", ch.localId)
	}
	ch.hs.apply(remoteEOF)
	ch.pending.eof()
	ch.stderr.eof()
	ch.signalEOF(nil)

	if ch.hs.apply(localClose) {
		ch.hs.apply(localEOF)
		if err := ch.send(codec.CloseMessage{ChannelID: ch.remoteId}); err != nil && err != io.EOF {
			return err
		}
	}

	ch.session.chans.remove(ch.localId)
	if ch.hs.complete() {
		ch.release(nil)
	}
	return nil
}

func (ch *channel) handleData(length uint32, data []byte, extended bool, dataType uint32) error {
	if length > ch.maxIncomingPayload {
		return protocolErrorf("incoming packet exceeds maximum payload size")
	}
	if length != uint32(len(data)) {
		return protocolErrorf("wrong packet length")
	}
	if extended && dataType != codec.ExtendedDataStderr {
		return protocolErrorf("invalid extended data type %d", dataType)
	}

	ch.windowMu.Lock()
	if ch.myWindow < length {
		ch.windowMu.Unlock()
		return protocolErrorf("remote side wrote too much")
	}
	ch.myWindow -= length
	ch.windowMu.Unlock()

	if extended {
		if ch.ext.deliver(data) {
			// Discarded bytes are never read, so credit the peer now.
			return ch.adjustWindow(length)
		}
		return nil
	}

	ch.pending.write(data)
	return nil
}
