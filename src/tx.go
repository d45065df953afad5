package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Generate the pulse sequence for one message, repeated,
 *		from a periodic timer tick.
 *
 * Description:	Each pulse is counted in ticks.  A counter is loaded with
 *		the "high" count at the start of every pulse and
 *		decremented on each tick.  When it reaches the "trail"
 *		count the line is forced inactive, which ends the mark.
 *		When it reaches zero the state machine takes a step.
 *
 *		With the default counts and a 140 uS tick:
 *
 *			mark		2 ticks		280 uS
 *			1 bit space	2 ticks		280 uS
 *			0 bit		7 more ticks	so the space
 *					before the next mark is 1260 uS
 *			gap		78 ticks	10.9 mS
 *
 *		Every byte is preceded by a start mark and every message
 *		by a message start mark.  A final mark ends the last
 *		byte, then the gap, then the next repeat.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultTxRepeats  = 12
	MaxTxRepeats      = 40
	DefaultTickPeriod = 140 * time.Microsecond
	minTickPeriod     = 32 * time.Microsecond
	maxTickPeriod     = 1000 * time.Microsecond
)

// TxTiming holds the pulse lengths, in ticks.
type TxTiming struct {
	Low   uint8 // extra ticks of space for a 0 bit
	High  uint8 // ticks in a mark plus the space of a 1 bit
	Trail uint8 // tick count at which the mark ends
	Gap   uint8 // ticks per unit of inter-message gap

	// GapMultiplier adds this many extra Gap units after each message.
	GapMultiplier uint16
}

// DefaultTxTiming returns the standard LightwaveRF pulse lengths.
func DefaultTxTiming() TxTiming {
	return TxTiming{Low: 7, High: 4, Trail: 2, Gap: 72}
}

// normalize replaces counts that would stall the state machine.
// The trail count must sit strictly between zero and the high count,
// otherwise the mark never ends or the step never happens.
func (t TxTiming) normalize() (TxTiming, bool) {
	var d = DefaultTxTiming()
	var changed bool
	if t.High < 2 {
		t.High, changed = d.High, true
	}
	if t.Trail == 0 || t.Trail >= t.High {
		t.Trail, changed = t.High/2, true
	}
	if t.Low == 0 {
		t.Low, changed = d.Low, true
	}
	if t.Gap == 0 {
		t.Gap, changed = d.Gap, true
	}

	return t, changed
}

type txState int

const (
	txIdle txState = iota
	txMsgStart
	txByteStart
	txSendByte
	txMsgEnd
	txGapStart
	txGapEnd
)

// TxOptions configures a Transmitter.
type TxOptions struct {
	Invert      bool
	Repeats     int
	Period      time.Duration
	Timing      TxTiming
	Store       Store // nil disables address persistence
	StoreOffset int
	Logger      *log.Logger
}

// DefaultTxOptions returns the options of a standard transmitter.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		Repeats: DefaultTxRepeats,
		Period:  DefaultTickPeriod,
		Timing:  DefaultTxTiming(),
	}
}

// txSettings is what a send takes with it, frozen when the send starts.
type txSettings struct {
	timing  TxTiming
	repeats int
	on, off bool
}

// txGenerator is touched only from Tick.
type txGenerator struct {
	state     txState
	toggle    uint8
	buf       Frame
	set       txSettings
	numBytes  int
	bitMask   byte
	repeat    int
	gapRepeat uint16
}

// Transmitter turns messages into timed levels on a Line.
//
// Tick is the timer callback and the only code that touches the
// generator.  Everything else runs in the caller's context and only hands
// over a frame through the active flag.
type Transmitter struct {
	line   Line
	ticks  TickSource
	logger *log.Logger

	mu          sync.Mutex // serialises callers, never taken by Tick
	invert      bool
	repeats     int
	period      time.Duration
	timing      TxTiming
	addr        [AddressLen]byte
	store       Store
	storeOffset int

	pending    Frame
	pendingSet txSettings
	active     atomic.Bool

	gen txGenerator

	framesSent atomic.Uint64
	lineErrors atomic.Uint64
}

/*------------------------------------------------------------------
 *
 * Name:	NewTransmitter
 *
 * Purpose:	Create a transmitter and register its tick with the
 *		tick source.
 *
 * Inputs:	line	- Data pin.  Driven inactive straight away.
 *
 *		ticks	- Periodic tick source.  Left stopped until
 *			  something is sent.
 *
 *		opts	- Out of range values are replaced by defaults.
 *
 *------------------------------------------------------------------*/

func NewTransmitter(line Line, ticks TickSource, opts TxOptions) (*Transmitter, error) {
	var tx = &Transmitter{
		line:        line,
		ticks:       ticks,
		logger:      opts.Logger,
		store:       opts.Store,
		storeOffset: opts.StoreOffset,
	}
	if tx.logger == nil {
		tx.logger = log.Default()
	}

	tx.timing = tx.checkTiming(opts.Timing)
	tx.invert = opts.Invert
	tx.repeats = tx.checkRepeats(opts.Repeats)
	tx.period = tx.checkPeriod(opts.Period)

	tx.gen.set = tx.settings()
	tx.gen.toggle = 3

	if err := tx.ticks.Setup(tx.period, tx.Tick); err != nil {
		return nil, fmt.Errorf("tick source: %w", err)
	}

	if err := tx.line.SetLevel(tx.gen.set.off); err != nil {
		return nil, fmt.Errorf("tx line: %w", err)
	}

	return tx, nil
}

func (tx *Transmitter) checkRepeats(n int) int {
	if n < 1 || n > MaxTxRepeats {
		tx.logger.Warn("tx repeat count out of range, using default", "repeats", n, "default", DefaultTxRepeats)
		return DefaultTxRepeats
	}

	return n
}

func (tx *Transmitter) checkPeriod(p time.Duration) time.Duration {
	if p <= minTickPeriod || p >= maxTickPeriod {
		tx.logger.Warn("tick period out of range, using default", "period", p, "default", DefaultTickPeriod)
		return DefaultTickPeriod
	}

	return p
}

func (tx *Transmitter) checkTiming(t TxTiming) TxTiming {
	var n, changed = t.normalize()
	if changed {
		tx.logger.Warn("tick counts adjusted", "low", n.Low, "high", n.High, "trail", n.Trail, "gap", n.Gap)
	}

	return n
}

func (tx *Transmitter) settings() txSettings {
	return txSettings{
		timing:  tx.timing,
		repeats: tx.repeats,
		on:      !tx.invert,
		off:     tx.invert,
	}
}

// Configure sets the line polarity, repeat count and tick period.
// Out of range values fall back to the defaults.
func (tx *Transmitter) Configure(invert bool, repeats int, period time.Duration) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.active.Load() {
		return ErrBusy
	}

	tx.invert = invert
	tx.repeats = tx.checkRepeats(repeats)

	var p = tx.checkPeriod(period)
	if p != tx.period {
		if err := tx.ticks.Setup(p, tx.Tick); err != nil {
			return fmt.Errorf("tick source: %w", err)
		}
		tx.period = p
	}

	if err := tx.line.SetLevel(invert); err != nil {
		return fmt.Errorf("tx line: %w", err)
	}

	return nil
}

// SetPulseDurations changes the tick counts used by later sends.
func (tx *Transmitter) SetPulseDurations(low, high, trail, gap uint8) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.active.Load() {
		return ErrBusy
	}

	var mult = tx.timing.GapMultiplier
	tx.timing = tx.checkTiming(TxTiming{Low: low, High: high, Trail: trail, Gap: gap, GapMultiplier: mult})

	return nil
}

// SetGapMultiplier stretches the gap after each message by n extra gap units.
func (tx *Transmitter) SetGapMultiplier(n uint16) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.active.Load() {
		return ErrBusy
	}

	tx.timing.GapMultiplier = n

	return nil
}

// Busy reports whether a send is in progress.
func (tx *Transmitter) Busy() bool {
	return tx.active.Load()
}

// Timing returns the tick counts for the next send.
func (tx *Transmitter) Timing() TxTiming {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.timing
}

// Period returns the tick period.
func (tx *Transmitter) Period() time.Duration {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.period
}

// Repeats returns how many times each message is sent.
func (tx *Transmitter) Repeats() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.repeats
}

// FramesSent counts completed frames, repeats included.
func (tx *Transmitter) FramesSent() uint64 { return tx.framesSent.Load() }

// LineErrors counts failed writes to the data pin.
func (tx *Transmitter) LineErrors() uint64 { return tx.lineErrors.Load() }

// Send transmits a message, translating every symbol to its line code.
// It returns ErrBusy, and changes nothing, while a send is in progress.
func (tx *Transmitter) Send(m Message) error {
	return tx.SendFrame(m.Frame())
}

// SendFrame transmits ten bytes exactly as given.
func (tx *Transmitter) SendFrame(f Frame) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.startLocked(f)
}

func (tx *Transmitter) startLocked(f Frame) error {
	if tx.active.Load() {
		return ErrBusy
	}

	tx.pending = f
	tx.pendingSet = tx.settings()
	tx.active.Store(true)
	tx.ticks.Start()

	return nil
}

/*------------------------------------------------------------------
 *
 * Name:	SetAddress
 *
 * Purpose:	Remember the sender address used by SendCommand.
 *
 * Inputs:	addr	- Five symbols.
 *
 * Description:	The address is saved in line code form so that it
 *		survives a restart.  A failed save leaves the address
 *		set for this run and is reported to the caller.
 *
 *------------------------------------------------------------------*/

func (tx *Transmitter) SetAddress(addr [AddressLen]byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	var codes [AddressLen]byte
	for i := range addr {
		tx.addr[i] = addr[i] & 0x0F
		codes[i] = EncodeSymbol(addr[i])
	}

	if tx.store == nil {
		return nil
	}

	if err := tx.store.Save(tx.storeOffset, codes[:]); err != nil {
		return fmt.Errorf("save address: %w", err)
	}

	return nil
}

// LoadAddress restores the address saved by SetAddress.
// A store that was never written holds no valid line codes and gives ErrInvalidSymbol.
func (tx *Transmitter) LoadAddress() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.store == nil {
		return nil
	}

	var codes [AddressLen]byte
	if err := tx.store.Load(tx.storeOffset, codes[:]); err != nil {
		return fmt.Errorf("load address: %w", err)
	}

	var addr [AddressLen]byte
	for i, c := range codes {
		var v, ok = DecodeSymbol(c)
		if !ok {
			return fmt.Errorf("stored address byte %d (0x%02X): %w", i, c, ErrInvalidSymbol)
		}
		addr[i] = v
	}
	tx.addr = addr

	return nil
}

// Address returns the address used by SendCommand.
func (tx *Transmitter) Address() [AddressLen]byte {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.addr
}

// SendCommand builds a message from the stored address and sends it.
func (tx *Transmitter) SendCommand(command, param, room, device byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.startLocked(NewMessage(command, param, room, device, tx.addr).Frame())
}

// Wait blocks until the current send has finished.
func (tx *Transmitter) Wait(ctx context.Context) error {
	var t = time.NewTicker(4 * tx.Period())
	defer t.Stop()

	for tx.Busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return nil
}

func (tx *Transmitter) drive(level bool) {
	if err := tx.line.SetLevel(level); err != nil {
		tx.lineErrors.Add(1)
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Tick
 *
 * Purpose:	Advance the pulse generator by one tick.
 *
 * Description:	Called from the tick source only.  Every path is a
 *		handful of assignments and at most one line write.
 *
 *------------------------------------------------------------------*/

func (tx *Transmitter) Tick() {
	var g = &tx.gen

	g.toggle--
	if g.toggle == g.set.timing.Trail {
		if g.state == txIdle && tx.active.Load() {
			// Polarity may have changed since the last send.
			tx.drive(tx.pendingSet.off)
		} else {
			tx.drive(g.set.off)
		}
		return
	}
	if g.toggle != 0 {
		return
	}

	g.toggle = g.set.timing.High

	switch g.state {
	case txIdle:
		if tx.active.Load() {
			g.buf = tx.pending
			g.set = tx.pendingSet
			g.toggle = g.set.timing.High
			g.repeat = 0
			g.state = txMsgStart
		}

	case txMsgStart:
		tx.drive(g.set.on)
		g.numBytes = 0
		g.state = txByteStart

	case txByteStart:
		tx.drive(g.set.on)
		g.bitMask = 0x80
		g.state = txSendByte

	case txSendByte:
		if g.buf[g.numBytes]&g.bitMask != 0 {
			tx.drive(g.set.on)
		} else {
			// No mark, just a longer space.
			g.toggle = g.set.timing.Low
		}
		g.bitMask >>= 1
		if g.bitMask == 0 {
			g.numBytes++
			if g.numBytes >= MessageLen {
				g.state = txMsgEnd
			} else {
				g.state = txByteStart
			}
		}

	case txMsgEnd:
		tx.drive(g.set.on)
		g.gapRepeat = g.set.timing.GapMultiplier
		g.state = txGapStart

	case txGapStart:
		g.toggle = g.set.timing.Gap
		if g.gapRepeat == 0 {
			g.state = txGapEnd
		} else {
			g.gapRepeat--
		}

	case txGapEnd:
		tx.framesSent.Add(1)
		g.repeat++
		if g.repeat >= g.set.repeats {
			tx.ticks.Stop()
			g.state = txIdle
			tx.active.Store(false)
		} else {
			g.state = txMsgStart
		}
	}
}
