package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Run the transmitter and receiver without hardware.
 *
 * Description:	RenderPulses drives a Transmitter from a ManualTicker
 *		and records the line, giving the exact pulse train a real
 *		send would produce.  Edges and Replay feed such a train,
 *		or one captured from a real receiver, into a Receiver.
 *
 *		This is how lwrf-pulses works and how the codec is
 *		tested end to end.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"
)

// ManualTicker is a TickSource stepped by hand.
type ManualTicker struct {
	period  time.Duration
	tick    func()
	running bool
	steps   int
}

func (m *ManualTicker) Setup(period time.Duration, tick func()) error {
	m.period = period
	m.tick = tick

	return nil
}

func (m *ManualTicker) Start() { m.running = true }

func (m *ManualTicker) Stop() { m.running = false }

func (m *ManualTicker) Running() bool { return m.running }

func (m *ManualTicker) Period() time.Duration { return m.period }

// Steps counts ticks delivered so far.
func (m *ManualTicker) Steps() int { return m.steps }

// Step delivers one tick if started and reports whether it did.
func (m *ManualTicker) Step() bool {
	if !m.running || m.tick == nil {
		return false
	}

	m.tick()
	m.steps++

	return true
}

// LevelRecorder is a Line that remembers its level.
type LevelRecorder struct {
	mu     sync.Mutex
	level  bool
	writes int
}

func (l *LevelRecorder) SetLevel(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = high
	l.writes++

	return nil
}

func (l *LevelRecorder) Level() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.level
}

// Pulse is a stretch of constant level.  Level true means carrier on.
type Pulse struct {
	Level    bool
	Duration time.Duration
}

func (p Pulse) String() string {
	var l = 0
	if p.Level {
		l = 1
	}

	return fmt.Sprintf("%d %d", l, p.Duration.Microseconds())
}

// LeadIn is the quiet time put in front of a rendered transmission so
// that a receiver sees a gap before the first message.
const LeadIn = 20 * time.Millisecond

// maxRenderTicks is far beyond the longest legal transmission.
const maxRenderTicks = 10_000_000

/*------------------------------------------------------------------
 *
 * Name:	RenderPulses
 *
 * Purpose:	Produce the pulse train for sending f with opts.
 *
 * Returns:	Run length encoded levels, starting with LeadIn of
 *		silence and ending with the gap after the last repeat.
 *
 *------------------------------------------------------------------*/

func RenderPulses(f Frame, opts TxOptions) ([]Pulse, error) {
	var line LevelRecorder
	var ticks ManualTicker

	var tx, err = NewTransmitter(&line, &ticks, opts)
	if err != nil {
		return nil, err
	}

	if err := tx.SendFrame(f); err != nil {
		return nil, err
	}

	var invert = opts.Invert
	var period = tx.Period()
	var out = []Pulse{{Level: false, Duration: LeadIn}}

	for tx.Busy() {
		if ticks.Steps() > maxRenderTicks {
			return nil, fmt.Errorf("transmitter did not finish after %d ticks", ticks.Steps())
		}
		ticks.Step()

		var level = line.Level() != invert
		if last := &out[len(out)-1]; last.Level == level {
			last.Duration += period
		} else {
			out = append(out, Pulse{Level: level, Duration: period})
		}
	}

	return out, nil
}

// Edges converts a pulse train to the transitions a receiver would see.
func Edges(pulses []Pulse) []Edge {
	var edges = make([]Edge, 0, len(pulses))
	var elapsed time.Duration
	for i, p := range pulses {
		if i > 0 && p.Level != pulses[i-1].Level {
			edges = append(edges, Edge{Level: p.Level, Elapsed: elapsed})
			elapsed = 0
		}
		elapsed += p.Duration
	}

	return edges
}

// EdgeClock is a settable clock for a Receiver fed from recorded edges.
type EdgeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewEdgeClock(start time.Time) *EdgeClock {
	return &EdgeClock{now: start}
}

func (c *EdgeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *EdgeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Replay feeds edges to r, moving clock along with them.
// The clock should be r's Now.
func Replay(r *Receiver, clock *EdgeClock, edges []Edge) {
	for _, e := range edges {
		clock.Advance(e.Elapsed)
		r.HandleEdge(e)
	}
}
