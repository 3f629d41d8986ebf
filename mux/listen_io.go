package mux

import (
	"io"
	"net"
	"os"

	"github.com/hashicorp/go-multierror"
)

// ioListener wraps a single ReadWriteCloser to use as a listener.
type ioListener struct {
	io.ReadWriteCloser
	cfg *Config
}

// Accept will always return the wrapped ReadWriteCloser as a mux session.
func (l *ioListener) Accept() (*Session, error) {
	return NewWith(l.ReadWriteCloser, l.cfg), nil
}

func (l *ioListener) Addr() net.Addr {
	return nil
}

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

// Close closes both halves, reporting every failure.
func (d *ioduplex) Close() error {
	var result *multierror.Error
	result = multierror.Append(result, d.WriteCloser.Close())
	result = multierror.Append(result, d.ReadCloser.Close())
	return result.ErrorOrNil()
}

// ListenIO returns a Listener that gives a mux session based on separate
// WriteCloser and ReadClosers.
func ListenIO(out io.WriteCloser, in io.ReadCloser) (Listener, error) {
	return &ioListener{ReadWriteCloser: &ioduplex{out, in}}, nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio() (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin)
}
