// Package quic maps the session/channel contract onto native QUIC
// streams. QUIC supplies its own per-stream flow control and close
// handshake, so streams are exposed directly; the channel request
// surface of the wire-level mux is not available here.
package quic

import (
	"context"
	"crypto/tls"

	"github.com/quic-go/quic-go"
)

var defaultTLSConfig = tls.Config{
	NextProtos: []string{"sshmux-quic"},
}

// Session multiplexes channels over one QUIC connection.
type Session struct {
	conn quic.Connection
}

// New returns a session over the given QUIC connection.
func New(conn quic.Connection) *Session {
	return &Session{conn: conn}
}

// Dial establishes a session over a new QUIC connection.
func Dial(addr string) (*Session, error) {
	conn, err := quic.DialAddr(context.Background(), addr, &defaultTLSConfig, nil)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

func (s *Session) Close() error {
	return s.conn.CloseWithError(0, "session closed")
}

// Accept waits for and returns the next incoming channel.
func (s *Session) Accept() (*Channel, error) {
	stream, err := s.conn.AcceptStream(context.Background())
	if err != nil {
		return nil, err
	}
	// Read the open marker that makes the peer's stream visible.
	header := make([]byte, 1)
	if _, err := stream.Read(header); err != nil {
		return nil, err
	}
	return &Channel{stream: stream}, nil
}

// Open establishes a new channel with the other end.
func (s *Session) Open(ctx context.Context) (*Channel, error) {
	stream, err := s.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	// A stream only becomes visible to the peer once bytes flow, so
	// write a one-byte open marker the acceptor strips.
	if _, err := stream.Write([]byte("!")); err != nil {
		return nil, err
	}
	return &Channel{stream: stream}, nil
}

// Wait blocks until the connection has shut down, and returns the
// error causing the shutdown.
func (s *Session) Wait() error {
	<-s.conn.Context().Done()
	return s.conn.Context().Err()
}

// Channel is one bidirectional QUIC stream.
type Channel struct {
	stream quic.Stream
}

// ID returns the unique identifier of this channel within the session.
func (c *Channel) ID() uint32 {
	return uint32(c.stream.StreamID())
}

func (c *Channel) Read(p []byte) (int, error) {
	return c.stream.Read(p)
}

func (c *Channel) Write(p []byte) (int, error) {
	return c.stream.Write(p)
}

// Close signals end of channel use and stops reading.
func (c *Channel) Close() error {
	c.stream.CancelRead(0)
	return c.CloseWrite()
}

// CloseWrite signals the end of sending data.
// The other side may still send data.
func (c *Channel) CloseWrite() error {
	return c.stream.Close()
}
