//go:build linux

package lwrf

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

/*------------------------------------------------------------------
 *
 * Name:	TimerfdTicker
 *
 * Purpose:	Periodic tick from a Linux timerfd on CLOCK_MONOTONIC.
 *
 * Description:	One goroutine, locked to its OS thread, blocks in read()
 *		on the timer.  Each read returns the number of expirations
 *		since the last one and the tick function is called that
 *		many times, so a late wakeup stretches one pulse instead
 *		of shortening the whole message.
 *
 *------------------------------------------------------------------*/

type TimerfdTicker struct {
	fd      int
	mu      sync.Mutex
	period  time.Duration
	tick    func()
	running atomic.Bool
	closed  atomic.Bool
	started bool
}

func NewTimerfdTicker() (*TimerfdTicker, error) {
	var fd, err = unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}

	return &TimerfdTicker{fd: fd}, nil
}

// NewTickSource returns the best tick source for this platform.
func NewTickSource() (TickSource, error) {
	return NewTimerfdTicker()
}

func (t *TimerfdTicker) Setup(period time.Duration, tick func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.period = period
	t.tick = tick

	if !t.started {
		t.started = true
		go t.loop()
	}

	return nil
}

func (t *TimerfdTicker) arm(value, interval time.Duration) {
	var spec = unix.ItimerSpec{
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
		Value:    unix.NsecToTimespec(value.Nanoseconds()),
	}
	_ = unix.TimerfdSettime(t.fd, 0, &spec, nil)
}

func (t *TimerfdTicker) Start() {
	t.mu.Lock()
	var p = t.period
	t.mu.Unlock()

	t.running.Store(true)
	t.arm(p, p)
}

// Stop disarms the timer.  It is safe from inside the tick function.
func (t *TimerfdTicker) Stop() {
	t.running.Store(false)
	t.arm(0, 0)
}

// Close stops the goroutine and releases the timer.
func (t *TimerfdTicker) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	t.running.Store(false)

	t.mu.Lock()
	var started = t.started
	t.mu.Unlock()

	if !started {
		return unix.Close(t.fd)
	}

	// Fire once more so the blocked read returns.
	t.arm(time.Microsecond, 0)

	return nil
}

func (t *TimerfdTicker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer unix.Close(t.fd) //nolint:errcheck

	var buf [8]byte
	for !t.closed.Load() {
		var n, err = unix.Read(t.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil || n != len(buf) {
			return
		}

		t.mu.Lock()
		var tick = t.tick
		t.mu.Unlock()

		var expirations = binary.NativeEndian.Uint64(buf[:])
		for range expirations {
			if !t.running.Load() {
				break
			}
			tick()
		}
	}
}
