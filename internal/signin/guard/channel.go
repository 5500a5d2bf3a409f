package guard

import "sync"

// Sink receives raw error reports, e.g. a logger's error method.
type Sink func(args ...any)

// Channel is the process-wide raw error-reporting channel. At most one Guard
// intercepts it at a time.
type Channel struct {
	mu    sync.RWMutex
	sink  Sink
	owner *Guard
}

// NewChannel creates a channel delivering to base. A nil base discards reports.
func NewChannel(base Sink) *Channel {
	if base == nil {
		base = func(...any) {}
	}
	return &Channel{sink: base}
}

// Report delivers args to the current sink.
func (c *Channel) Report(args ...any) {
	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	sink(args...)
}

func (c *Channel) currentOwner() *Guard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// install makes s the sink on behalf of g and returns the sink it replaced.
func (c *Channel) install(g *Guard, s Sink) Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.sink
	c.sink = s
	c.owner = g
	return prev
}

// restore puts prev back if g still owns the channel.
func (c *Channel) restore(g *Guard, prev Sink) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != g {
		return false
	}
	c.sink = prev
	c.owner = nil
	return true
}
