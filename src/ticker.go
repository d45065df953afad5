package lwrf

import (
	"sync"
	"sync/atomic"
	"time"
)

// GoTicker is a TickSource built on time.Ticker.
// Go timers are not precise enough for real transmissions below about
// a millisecond; it exists for hosts without timerfd and for testing.
type GoTicker struct {
	mu      sync.Mutex
	period  time.Duration
	tick    func()
	running atomic.Bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

func NewGoTicker() *GoTicker {
	return &GoTicker{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (g *GoTicker) Setup(period time.Duration, tick func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.period = period
	g.tick = tick

	if !g.started {
		g.started = true
		go g.loop()
	}

	return nil
}

func (g *GoTicker) Start() {
	g.running.Store(true)

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Stop may be called from inside the tick function.
func (g *GoTicker) Stop() {
	g.running.Store(false)
}

// Close ends the ticker goroutine.
func (g *GoTicker) Close() error {
	g.once.Do(func() { close(g.done) })
	return nil
}

func (g *GoTicker) loop() {
	for {
		select {
		case <-g.done:
			return
		case <-g.wake:
		}

		g.mu.Lock()
		var period, tick = g.period, g.tick
		g.mu.Unlock()

		var t = time.NewTicker(period)
		for g.running.Load() {
			select {
			case <-g.done:
				t.Stop()
				return
			case <-t.C:
				tick()
			}
		}
		t.Stop()
	}
}
