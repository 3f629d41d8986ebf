package mux

import "sync"

// ExtendedDataMode selects the delivery discipline applied to inbound
// extended (stderr) data on a channel.
type ExtendedDataMode int

const (
	// ExtendedDataNormal buffers extended data separately from the
	// primary stream, to be drained with ReadExtended.
	ExtendedDataNormal ExtendedDataMode = iota

	// ExtendedDataMerge appends extended data to the primary stream at
	// its arrival position, preserving arrival order across both
	// substreams.
	ExtendedDataMerge

	// ExtendedDataIgnore discards extended data on arrival. The peer is
	// still credited for the discarded bytes so it is never starved of
	// window.
	ExtendedDataIgnore
)

func (m ExtendedDataMode) String() string {
	switch m {
	case ExtendedDataNormal:
		return "normal"
	case ExtendedDataMerge:
		return "merge"
	case ExtendedDataIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// extendedRouter applies the configured delivery discipline to inbound
// extended data. Mode changes affect subsequently arriving bytes only;
// bytes already buffered stay where they were routed.
type extendedRouter struct {
	mu      sync.Mutex
	mode    ExtendedDataMode
	primary *buffer
	stderr  *buffer
}

func (r *extendedRouter) setMode(m ExtendedDataMode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

func (r *extendedRouter) currentMode() ExtendedDataMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// deliver routes buf according to the current mode and reports whether
// the bytes were discarded, in which case the caller must credit the
// peer's window immediately.
func (r *extendedRouter) deliver(buf []byte) (discarded bool) {
	switch r.currentMode() {
	case ExtendedDataMerge:
		r.primary.write(buf)
	case ExtendedDataIgnore:
		return true
	default:
		r.stderr.write(buf)
	}
	return false
}
