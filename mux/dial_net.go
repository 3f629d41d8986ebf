package mux

import (
	"net"
)

func dialNet(proto, addr string, cfg *Config) (*Session, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return NewWith(conn, cfg), nil
}

// DialTCP establishes a mux session via TCP connection.
func DialTCP(addr string) (*Session, error) {
	return dialNet("tcp", addr, nil)
}

// DialTCPWith establishes a mux session via TCP connection using the
// given configuration.
func DialTCPWith(addr string, cfg *Config) (*Session, error) {
	return dialNet("tcp", addr, cfg)
}

// DialUnix establishes a mux session via Unix domain socket.
func DialUnix(path string) (*Session, error) {
	return dialNet("unix", path, nil)
}
