package mux

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newWindow(initial uint32) *window {
	w := &window{Cond: sync.NewCond(new(sync.Mutex))}
	w.add(initial)
	return w
}

func TestWindowReserve(t *testing.T) {
	w := newWindow(100)

	got, err := w.reserve(40)
	require.NoError(t, err)
	require.Equal(t, uint32(40), got)
	require.Equal(t, uint32(60), w.available())

	// Asking for more than remains reserves what's left.
	got, err = w.reserve(100)
	require.NoError(t, err)
	require.Equal(t, uint32(60), got)
	require.Equal(t, uint32(0), w.available())
}

func TestWindowReserveBlocksUntilAdd(t *testing.T) {
	w := newWindow(0)

	done := make(chan uint32)
	go func() {
		got, err := w.reserve(25)
		require.NoError(t, err)
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("reserve returned before credit arrived")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, w.add(25))
	require.Equal(t, uint32(25), <-done)
}

func TestWindowAddOverflow(t *testing.T) {
	w := newWindow(1)
	require.False(t, w.add(^uint32(0)))
	require.Equal(t, uint32(1), w.available())
}

func TestWindowAddZero(t *testing.T) {
	w := newWindow(5)
	require.True(t, w.add(0))
	require.Equal(t, uint32(5), w.available())
}

func TestWindowCloseReleasesWaiters(t *testing.T) {
	w := newWindow(0)

	errs := make(chan error)
	go func() {
		_, err := w.reserve(10)
		errs <- err
	}()

	w.close(ErrTransportClosed)
	require.ErrorIs(t, <-errs, ErrTransportClosed)

	// Later reserves observe the closure too.
	_, err := w.reserve(10)
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestWindowCloseDefaultsToEOF(t *testing.T) {
	w := newWindow(0)
	w.close(nil)
	_, err := w.reserve(1)
	require.ErrorIs(t, err, io.EOF)
}
