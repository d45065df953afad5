package lwrf

import (
	"sync"
	"sync/atomic"
)

// messageCell passes one confirmed message from the edge goroutine to
// whoever reads messages.  A newer message overwrites an unread one.
// The ready flag can be polled without taking the lock.
type messageCell struct {
	mu    sync.Mutex
	msg   Frame
	ready atomic.Bool
}

func (c *messageCell) publish(f Frame) {
	c.mu.Lock()
	c.msg = f
	c.ready.Store(true)
	c.mu.Unlock()
}

func (c *messageCell) pending() bool {
	return c.ready.Load()
}

// take returns the message and clears the flag, or ok false if there is none.
func (c *messageCell) take() (f Frame, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready.Load() {
		return Frame{}, false
	}

	f = c.msg
	c.ready.Store(false)

	return f, true
}
