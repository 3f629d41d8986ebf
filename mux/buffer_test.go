package mux

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferReadOrder(t *testing.T) {
	b := newBuffer()
	b.write([]byte("hello"))
	b.write([]byte(" "))
	b.write([]byte("world"))

	got := make([]byte, 32)
	n, err := b.Read(got)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got[:n]))
}

func TestBufferPartialReads(t *testing.T) {
	b := newBuffer()
	b.write([]byte("abcdef"))

	got := make([]byte, 2)
	for _, want := range []string{"ab", "cd", "ef"} {
		n, err := b.Read(got)
		require.NoError(t, err)
		require.Equal(t, want, string(got[:n]))
	}
}

func TestBufferEOFAfterDrain(t *testing.T) {
	b := newBuffer()
	b.write([]byte("tail"))
	b.eof()

	got := make([]byte, 32)
	n, err := b.Read(got)
	require.NoError(t, err)
	require.Equal(t, "tail", string(got[:n]))

	// Every subsequent read keeps returning io.EOF, never an error.
	for i := 0; i < 3; i++ {
		n, err = b.Read(got)
		require.Equal(t, 0, n)
		require.ErrorIs(t, err, io.EOF)
	}
}

func TestBufferReadBlocksUntilWrite(t *testing.T) {
	b := newBuffer()

	done := make(chan string)
	go func() {
		got := make([]byte, 8)
		n, err := b.Read(got)
		require.NoError(t, err)
		done <- string(got[:n])
	}()

	b.write([]byte("late"))
	require.Equal(t, "late", <-done)
}

func TestBufferCloseWithError(t *testing.T) {
	b := newBuffer()
	b.write([]byte("x"))
	b.close(ErrTransportClosed)

	got := make([]byte, 8)
	n, err := b.Read(got)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = b.Read(got)
	require.ErrorIs(t, err, ErrTransportClosed)
}

func TestBufferFirstCloseWins(t *testing.T) {
	b := newBuffer()
	b.eof()
	b.close(ErrTransportClosed)

	_, err := b.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}
