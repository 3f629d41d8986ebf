package mux

import "sync"

// handshakeEvent names one direction of the EOF/close shutdown lattice.
type handshakeEvent uint8

const (
	localEOF handshakeEvent = 1 << iota
	remoteEOF
	localClose
	remoteClose
)

// handshake tracks the per-direction EOF/close shutdown of a channel.
// The two EOF directions and the two close directions progress
// independently and may interleave in any order, but every event is
// monotonic: once observed it holds for the life of the channel.
type handshake struct {
	mu   sync.Mutex
	seen handshakeEvent
}

// apply records ev and reports whether it was newly observed. A false
// return means the event had already happened, so the caller must not
// emit its wire message again.
func (h *handshake) apply(ev handshakeEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seen&ev != 0 {
		return false
	}
	h.seen |= ev
	return true
}

func (h *handshake) has(ev handshakeEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seen&ev == ev
}

// complete reports whether both close directions are accounted for,
// which is the condition for releasing the channel's resources.
func (h *handshake) complete() bool {
	return h.has(localClose | remoteClose)
}

// String renders the lattice position for logging.
func (h *handshake) String() string {
	h.mu.Lock()
	seen := h.seen
	h.mu.Unlock()
	switch {
	case seen&(localClose|remoteClose) == localClose|remoteClose:
		return "closed"
	case seen&(localClose|remoteClose) != 0:
		return "closing"
	case seen&(localEOF|remoteEOF) == localEOF|remoteEOF:
		return "eof-both"
	case seen&localEOF != 0:
		return "eof-local"
	case seen&remoteEOF != 0:
		return "eof-remote"
	default:
		return "open"
	}
}
