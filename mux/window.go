package mux

import (
	"io"
	"sync"
)

// window represents the buffer available to clients wanting to write
// to a channel: the number of bytes the peer has granted and we have
// not yet consumed by sending.
type window struct {
	*sync.Cond
	win      uint32 // RFC 4254 5.2 says the window size can grow to 2^32-1
	closed   bool
	closeErr error
}

// add adds win to the amount of window available for consumers.
func (w *window) add(win uint32) bool {
	// a zero sized window adjust is a noop.
	if win == 0 {
		return true
	}
	w.L.Lock()
	if w.win+win < win {
		w.L.Unlock()
		return false
	}
	w.win += win
	// It is unusual that multiple goroutines would be attempting to reserve
	// window space, but not guaranteed. Use broadcast to notify all waiters.
	w.Broadcast()
	w.L.Unlock()
	return true
}

// close sets the window to closed, releasing waiting writers with err
// (io.EOF when err is nil).
func (w *window) close(err error) {
	w.L.Lock()
	w.closed = true
	if w.closeErr == nil {
		w.closeErr = err
	}
	w.Broadcast()
	w.L.Unlock()
}

// reserve reserves win from the available window capacity. If no capacity
// remains, the call blocks until more capacity is granted or the window
// is closed.
func (w *window) reserve(win uint32) (uint32, error) {
	var err error
	w.L.Lock()
	for w.win == 0 && !w.closed {
		w.Wait()
	}
	if w.win < win {
		win = w.win
	}
	w.win -= win
	if w.closed {
		err = w.closeErr
		if err == nil {
			err = io.EOF
		}
	}
	w.L.Unlock()
	return win, err
}

// available returns the current unreserved capacity without blocking.
func (w *window) available() uint32 {
	w.L.Lock()
	defer w.L.Unlock()
	return w.win
}
