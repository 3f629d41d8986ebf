package mux

import "sync"

// chanList is the table mapping local channel ids to channels, used by
// the session loop to demultiplex inbound messages. Ids are reused once
// a channel is removed.
type chanList struct {
	sync.Mutex
	chans []*channel
}

// add assigns the next free id to ch and returns it.
func (c *chanList) add(ch *channel) uint32 {
	c.Lock()
	defer c.Unlock()
	for i := range c.chans {
		if c.chans[i] == nil {
			c.chans[i] = ch
			return uint32(i)
		}
	}
	c.chans = append(c.chans, ch)
	return uint32(len(c.chans) - 1)
}

// getChan returns the channel for the given id, or nil.
func (c *chanList) getChan(id uint32) *channel {
	c.Lock()
	defer c.Unlock()
	if id < uint32(len(c.chans)) {
		return c.chans[id]
	}
	return nil
}

func (c *chanList) remove(id uint32) {
	c.Lock()
	if id < uint32(len(c.chans)) {
		c.chans[id] = nil
	}
	c.Unlock()
}

// dropAll empties the table and returns the channels it held, used for
// forced teardown when the transport goes away.
func (c *chanList) dropAll() []*channel {
	c.Lock()
	defer c.Unlock()
	var r []*channel
	for _, ch := range c.chans {
		if ch != nil {
			r = append(r, ch)
		}
	}
	c.chans = nil
	return r
}
