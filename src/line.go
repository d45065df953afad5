package lwrf

import "time"

// Line is a digital output, the transmitter's data pin.
// SetLevel drives the physical level; polarity is handled by the caller.
type Line interface {
	SetLevel(high bool) error
}

// TickSource calls a registered function once per period while started.
//
// Stop must be safe to call from inside the tick function: the transmitter
// stops its own tick source when the last repeat has gone out.
type TickSource interface {
	Setup(period time.Duration, tick func()) error
	Start()
	Stop()
}

// Edge is one transition of the receive line.
type Edge struct {
	// Level is the line level after the transition.
	// True means a space just ended, false means a mark just ended.
	Level bool
	// Elapsed is the time since the previous transition, which is
	// the width of the pulse that just ended.
	Elapsed time.Duration
}

// EdgeSource delivers line transitions, one at a time, from a single goroutine.
type EdgeSource interface {
	Listen(handle func(Edge)) error
	Close() error
}
