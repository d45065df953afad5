package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Accept a message only after it has been heard several
 *		times in close succession.
 *
 * Description:	There is no error correction on the air.  The sender
 *		repeats every message and the receiver insists on seeing
 *		the same ten bytes Repeats+1 times, each arriving within
 *		Timeout (in 100 mS units) of the one before.
 *
 *		A message is reported once per burst.  Further copies of
 *		the same burst keep the count climbing past the
 *		threshold without being reported again.
 *
 *------------------------------------------------------------------*/

import "time"

const (
	DefaultRxRepeats = 2
	DefaultRxTimeout = 20
	timeoutUnit      = 100 * time.Millisecond
)

// RepeatFilter is not safe for concurrent use; the receiver guards it.
type RepeatFilter struct {
	Repeats uint8 // extra identical copies needed
	Timeout uint8 // 100 mS units between copies

	last     Frame
	lastTime time.Time
	count    int
	seen     bool
}

func NewRepeatFilter(repeats, timeout uint8) *RepeatFilter {
	return &RepeatFilter{Repeats: repeats, Timeout: timeout}
}

// Observe records one assembled frame and reports whether it is now confirmed.
func (f *RepeatFilter) Observe(fr Frame, now time.Time) bool {
	// Whole units only: with Timeout 20 a copy 2.099 S later is in time.
	var expired = now.Sub(f.lastTime)/timeoutUnit > time.Duration(f.Timeout)

	if !f.seen || fr != f.last || expired {
		f.count = 1
	} else {
		f.count++
	}

	f.seen = true
	f.last = fr
	f.lastTime = now

	return f.count == int(f.Repeats)+1
}

// Count is the number of consecutive identical frames in the current burst.
func (f *RepeatFilter) Count() int {
	return f.count
}

// Reset forgets the current burst.
func (f *RepeatFilter) Reset() {
	f.seen = false
	f.count = 0
}
