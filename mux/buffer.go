package mux

import (
	"io"
	"sync"
)

// buffer provides a linked list buffer for data exchange between the
// session's demultiplexing loop (producer) and a channel consumer. In
// theory the buffer is unbounded; in practice the flow-control window
// bounds how much the producer can append.
type buffer struct {
	*sync.Cond

	head *element // the buffer that will be read first
	tail *element // the buffer that will be read last

	closed bool
	err    error // delivered to readers once drained; io.EOF when nil
}

// An element represents a single link in a linked list.
type element struct {
	buf  []byte
	next *element
}

// newBuffer returns an empty buffer that is not closed.
func newBuffer() *buffer {
	e := new(element)
	return &buffer{
		Cond: sync.NewCond(new(sync.Mutex)),
		head: e,
		tail: e,
	}
}

// write makes buf available for Read to receive.
// buf must not be modified after the call has returned.
func (b *buffer) write(buf []byte) {
	b.Cond.L.Lock()
	e := &element{buf: buf}
	b.tail.next = e
	b.tail = e
	b.Cond.Signal()
	b.Cond.L.Unlock()
}

// eof closes the buffer. Reads will return any remaining data followed
// by io.EOF.
func (b *buffer) eof() {
	b.close(nil)
}

// close closes the buffer with err as the post-drain read result. A nil
// err means a clean end of stream (io.EOF). The first close wins.
func (b *buffer) close(err error) {
	b.Cond.L.Lock()
	if !b.closed {
		b.closed = true
		b.err = err
	}
	b.Cond.Broadcast()
	b.Cond.L.Unlock()
}

// Read reads data from the internal buffer in buf. Reads will block
// if no data is available, or until the buffer is closed.
func (b *buffer) Read(buf []byte) (n int, err error) {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()

	for len(buf) > 0 {
		// if there is data in b.head, copy it
		if len(b.head.buf) > 0 {
			r := copy(buf, b.head.buf)
			buf, b.head.buf = buf[r:], b.head.buf[r:]
			n += r
			continue
		}
		// if there is a next buffer, make it the head
		if len(b.head.buf) == 0 && b.head != b.tail {
			b.head = b.head.next
			continue
		}

		// if at least one byte has been copied, return
		if n > 0 {
			break
		}

		// out of buffers, wait for producer unless closed
		if b.closed {
			err = b.err
			if err == nil {
				err = io.EOF
			}
			break
		}
		b.Cond.Wait()
	}
	return
}
