package mux

import (
	"net"
)

// NetListener wraps a net.Listener to return connected mux sessions.
type NetListener struct {
	net.Listener
	cfg *Config
}

// Accept waits for and returns the next connected session to the listener.
func (l *NetListener) Accept() (*Session, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewWith(conn, l.cfg), nil
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	return l.Listener.Close()
}

func listenNet(proto, addr string, cfg *Config) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}
	return &NetListener{Listener: l, cfg: cfg}, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string) (*NetListener, error) {
	return listenNet("tcp", addr, nil)
}

// ListenTCPWith creates a TCP listener whose sessions use the given
// configuration.
func ListenTCPWith(addr string, cfg *Config) (*NetListener, error) {
	return listenNet("tcp", addr, cfg)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string) (*NetListener, error) {
	return listenNet("unix", path, nil)
}
