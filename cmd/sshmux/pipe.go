package main

import (
	"github.com/pkg/errors"

	"github.com/wiremux/sshmux/mux"
)

// cmdPipe bridges a session spoken on stdio to a server over TCP, so a
// parent process can reach a server through this process.
func cmdPipe(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sshmux pipe <addr>")
	}
	dst, err := mux.DialTCP(args[0])
	if err != nil {
		return err
	}
	defer dst.Close()

	l, err := mux.ListenStdio()
	if err != nil {
		return err
	}
	src, err := l.Accept()
	if err != nil {
		return err
	}
	return mux.Proxy(dst, src)
}
