package mux

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/wiremux/sshmux/mux/codec"
)

const (
	defaultWindowSize    = 2 << 20 // 2 MiB
	defaultMaxPacketSize = 1 << 15 // 32 KiB

	// channelTypeSession is the only channel type this layer speaks;
	// port-forwarding and X11 channel types are not implemented.
	channelTypeSession = "session"
)

// defaultAcceptTimeout bounds how long a confirmed peer-opened channel
// may sit unaccepted before it is closed again.
const defaultAcceptTimeout = 30 * time.Second

// acceptQueueSize is how many confirmed peer-opened channels may wait
// for Accept before further opens are refused.
const acceptQueueSize = 16

// Config carries per-session tuning. A nil Config selects the defaults.
type Config struct {
	// WindowSize is the initial receive window advertised for every
	// channel on the session.
	WindowSize uint32

	// MaxPacketSize is the largest data payload accepted in a single
	// message.
	MaxPacketSize uint32

	// AcceptTimeout bounds how long a confirmed peer-opened channel
	// waits for Accept before it is closed.
	AcceptTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := Config{
		WindowSize:    defaultWindowSize,
		MaxPacketSize: defaultMaxPacketSize,
		AcceptTimeout: defaultAcceptTimeout,
	}
	if c == nil {
		return out
	}
	if c.WindowSize != 0 {
		out.WindowSize = c.WindowSize
	}
	if c.MaxPacketSize != 0 {
		out.MaxPacketSize = c.MaxPacketSize
	}
	if c.AcceptTimeout != 0 {
		out.AcceptTimeout = c.AcceptTimeout
	}
	return out
}

// Session multiplexes channels over a single ordered byte transport. It
// runs the one demultiplexing loop shared by all channels, so a channel
// blocked on window credit never prevents the adjust message that would
// unblock it from being processed.
type Session struct {
	t   io.ReadWriteCloser
	cfg Config
	id  string

	enc *codec.Encoder
	dec *codec.Decoder

	chans chanList

	inbox   chan *channel
	closeCh chan struct{}

	errCond *sync.Cond
	err     error
}

// New returns a session that runs over the given transport with default
// configuration.
func New(t io.ReadWriteCloser) *Session {
	return NewWith(t, nil)
}

// NewWith returns a session that runs over the given transport with the
// given configuration.
func NewWith(t io.ReadWriteCloser, cfg *Config) *Session {
	if t == nil {
		return nil
	}
	s := &Session{
		t:       t,
		cfg:     cfg.withDefaults(),
		id:      xid.New().String(),
		enc:     codec.NewEncoder(t),
		dec:     codec.NewDecoder(t),
		inbox:   make(chan *channel, acceptQueueSize),
		closeCh: make(chan struct{}),
		errCond: sync.NewCond(new(sync.Mutex)),
	}
	go s.loop()
	return s
}

func (s *Session) log() *log.Entry {
	return log.WithField("session", s.id)
}

// Close closes the underlying transport. The demultiplexing loop will
// notice and force-release every channel on the session.
func (s *Session) Close() error {
	return s.t.Close()
}

// Wait blocks until the transport has shut down, and returns the
// error causing the shutdown.
func (s *Session) Wait() error {
	s.errCond.L.Lock()
	defer s.errCond.L.Unlock()
	for s.err == nil {
		s.errCond.Wait()
	}
	return s.err
}

// Accept waits for and returns the next incoming channel. Channels that
// expired or died while queued are skipped.
func (s *Session) Accept() (Channel, error) {
	for {
		select {
		case ch := <-s.inbox:
			select {
			case <-ch.closedSig:
				continue
			default:
			}
			close(ch.acceptedSig)
			return ch, nil
		case <-s.closeCh:
			return nil, io.EOF
		}
	}
}

// Open establishes a new channel with the other end.
func (s *Session) Open(ctx context.Context) (Channel, error) {
	ch := s.newChannel(channelOutbound)
	if err := s.enc.Encode(codec.OpenMessage{
		ChannelType:   channelTypeSession,
		SenderID:      ch.localId,
		WindowSize:    s.cfg.WindowSize,
		MaxPacketSize: s.cfg.MaxPacketSize,
	}); err != nil {
		s.chans.remove(ch.localId)
		return nil, errors.Wrap(err, "sshmux: channel open")
	}

	select {
	case <-ctx.Done():
		s.chans.remove(ch.localId)
		return nil, ctx.Err()
	case m, ok := <-ch.msg:
		if !ok {
			// channel was released before open got a response,
			// typically meaning the session was closed.
			return nil, net.ErrClosed
		}
		switch msg := m.(type) {
		case *codec.OpenConfirmMessage:
			s.log().WithField("channel", ch.localId).Debug("Opened channel")
			return ch, nil
		case *codec.OpenFailureMessage:
			return nil, errors.Errorf("sshmux: channel open failed: %s (%s)", msg.Description, msg.Reason)
		default:
			return nil, protocolErrorf("unexpected message in response to channel open: %v", m)
		}
	}
}

func (s *Session) newChannel(dir channelDirection) *channel {
	ch := &channel{
		session:            s,
		direction:          dir,
		maxIncomingPayload: s.cfg.MaxPacketSize,
		myWindow:           s.cfg.WindowSize,
		initialWindow:      s.cfg.WindowSize,
		pending:            newBuffer(),
		stderr:             newBuffer(),
		msg:                make(chan codec.Message, chanSize),
		incomingRequests:   make(chan *Request, chanSize),
		eofSig:             make(chan struct{}),
		closedSig:          make(chan struct{}),
		acceptedSig:        make(chan struct{}),
	}
	ch.remoteWin = window{Cond: sync.NewCond(new(sync.Mutex))}
	ch.ext = extendedRouter{primary: ch.pending, stderr: ch.stderr}
	ch.localId = s.chans.add(ch)
	return ch
}

// loop runs the connection machine. It will process messages until an
// error is encountered. To synchronize on loop exit, use Session.Wait.
func (s *Session) loop() {
	var err error
	for err == nil {
		err = s.onePacket()
	}
	if err != io.EOF {
		s.log().WithError(err).Debug("Session loop exited")
	}

	for _, ch := range s.chans.dropAll() {
		ch.release(ErrTransportClosed)
	}

	s.t.Close()
	close(s.closeCh)

	s.errCond.L.Lock()
	s.err = err
	s.errCond.Broadcast()
	s.errCond.L.Unlock()
}

// onePacket reads and processes one message. Errors scoped to a single
// channel tear down that channel and return nil; only framing-level
// failures end the session.
func (s *Session) onePacket() error {
	msg, err := s.dec.Decode()
	if err != nil {
		return err
	}

	if m, ok := msg.(*codec.OpenMessage); ok {
		return s.handleOpen(m)
	}

	id, ok := msg.Channel()
	if !ok {
		return protocolErrorf("message with no channel id: %v", msg)
	}

	ch := s.chans.getChan(id)
	if ch == nil {
		// Late messages for a released channel don't warrant tearing
		// down every other channel on the session.
		s.log().WithField("channel", id).Debug("Dropped message for unknown channel")
		return nil
	}

	if err := ch.handle(msg); err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			s.log().WithError(err).WithField("channel", id).Error("Channel protocol error")
			s.chans.remove(id)
			ch.release(err)
			return nil
		}
		return err
	}
	return nil
}

// handleOpen confirms a peer-opened channel as soon as it is queued for
// Accept, or refuses it on bad parameters or a full queue. It must never
// block: the demultiplexing loop has to keep pumping inbound frames for
// the other channels on the session.
func (s *Session) handleOpen(m *codec.OpenMessage) error {
	if m.ChannelType != channelTypeSession {
		return s.enc.Encode(codec.OpenFailureMessage{
			ChannelID:   m.SenderID,
			Reason:      codec.OpenUnknownChannelType,
			Description: "unsupported channel type " + m.ChannelType,
		})
	}
	if m.MaxPacketSize < minPacketLength || m.MaxPacketSize > maxPacketLength {
		return s.enc.Encode(codec.OpenFailureMessage{
			ChannelID:   m.SenderID,
			Reason:      codec.OpenConnectFailed,
			Description: "invalid max packet size",
		})
	}

	ch := s.newChannel(channelInbound)
	ch.remoteId = m.SenderID
	ch.maxRemotePayload = m.MaxPacketSize
	ch.remoteWin.add(m.WindowSize)

	select {
	case s.inbox <- ch:
	default:
		s.chans.remove(ch.localId)
		return s.enc.Encode(codec.OpenFailureMessage{
			ChannelID:   m.SenderID,
			Reason:      codec.OpenResourceShortage,
			Description: "accept queue full",
		})
	}

	s.log().WithField("channel", ch.localId).Debug("Queued channel")
	if err := s.enc.Encode(codec.OpenConfirmMessage{
		ChannelID:     ch.remoteId,
		SenderID:      ch.localId,
		WindowSize:    s.cfg.WindowSize,
		MaxPacketSize: s.cfg.MaxPacketSize,
	}); err != nil {
		return err
	}

	go s.expireUnaccepted(ch)
	return nil
}

// expireUnaccepted closes a queued channel that the application did not
// accept within AcceptTimeout, so an inattentive acceptor does not pin
// the peer's resources forever. Runs off the demultiplexing goroutine.
func (s *Session) expireUnaccepted(ch *channel) {
	t := time.NewTimer(s.cfg.AcceptTimeout)
	defer t.Stop()
	select {
	case <-ch.acceptedSig:
	case <-ch.closedSig:
	case <-t.C:
		s.log().WithField("channel", ch.localId).Debug("Channel not accepted in time, closing")
		ch.Close()
	}
}
