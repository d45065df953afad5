package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Turn receive line edges back into messages.
 *
 * Description:	Each edge is classified by the width of the pulse it
 *		ends (see Thresholds).  Marks carry nothing but their
 *		presence; the space after a mark says which bits it
 *		stands for:
 *
 *			short space	1
 *			long space	1 0
 *
 *		so a byte of a line code is a byte start mark followed by
 *		one mark per 1 bit.  A long space straight after the byte
 *		start mark is the leading 0 of line code 0x6F.
 *
 *		States:
 *
 *		idle		Wait for a gap.
 *		msgStart	Gap seen, wait for the space after the
 *				message start mark.
 *		byteStart	Wait for the space after a byte start mark.
 *		getByte		Collect bits until there are 8.
 *
 *		A gap restarts the message from any state.  Anything out
 *		of place drops the partial message and goes back to idle.
 *
 *		When ten bytes are in, the frame goes through the repeat
 *		filter, an armed learn, and the pairing table before it
 *		is offered to the reader.
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

type rxState int

const (
	rxIdle rxState = iota
	rxMsgStart
	rxByteStart
	rxGetByte
)

// RxOptions configures a Receiver.
type RxOptions struct {
	Translate    bool  // decode line codes to symbols
	Repeats      uint8 // extra identical copies before a message is confirmed
	Timeout      uint8 // 100 mS units allowed between copies
	PairEnforce  bool
	PairBaseOnly bool
	Stats        bool
	Adaptive     bool // move the short/long boundary with the measured averages
	Thresholds   Thresholds
	Store        Store
	StoreOffset  int
	Now          func() time.Time
	Logger       *log.Logger
}

func DefaultRxOptions() RxOptions {
	return RxOptions{
		Translate:  true,
		Repeats:    DefaultRxRepeats,
		Timeout:    DefaultRxTimeout,
		Stats:      true,
		Thresholds: DefaultThresholds(),
	}
}

// RxCounters are running totals since the receiver was created.
type RxCounters struct {
	Frames       uint64 // ten bytes assembled
	TimingResets uint64 // partial messages dropped on a bad pulse
	BadSymbols   uint64 // frames with a byte that is not a line code
	Confirmed    uint64 // frames that passed the repeat filter
	Learned      uint64 // confirmed frames used by a learn
	Dropped      uint64 // confirmed frames refused by the pairing table
	Overwritten  uint64 // reported messages replaced before they were read
}

type rxAssembler struct {
	state    rxState
	th       Thresholds
	frame    Frame
	numBytes int
	buf      byte
	bits     int
}

type Receiver struct {
	logger *log.Logger
	now    func() time.Time

	// Edge goroutine only.
	asm      rxAssembler
	adaptive bool

	translate atomic.Bool
	stats     *Stats
	pairs     *PairingTable

	mu     sync.Mutex // guards filter
	filter *RepeatFilter

	cell       messageCell
	notify     chan struct{}
	lastPacket atomic.Int64

	// tap sees every assembled frame before the repeat filter.
	tap func(Frame)

	frames, timingResets, badSymbols   atomic.Uint64
	confirmed, learned, dropped, overw atomic.Uint64
}

/*------------------------------------------------------------------
 *
 * Name:	NewReceiver
 *
 * Purpose:	Create a receiver.  Nothing happens until edges are
 *		fed to HandleEdge, directly or through Attach.
 *
 * Description:	If a store is given the pairing table is loaded from
 *		it.  A load failure is logged and the table starts empty.
 *
 *------------------------------------------------------------------*/

func NewReceiver(opts RxOptions) *Receiver {
	var r = &Receiver{
		logger:   opts.Logger,
		now:      opts.Now,
		adaptive: opts.Adaptive,
		stats:    NewStats(opts.Stats),
		pairs:    NewPairingTable(opts.Store, opts.StoreOffset),
		filter:   NewRepeatFilter(opts.Repeats, opts.Timeout),
		notify:   make(chan struct{}, 1),
	}

	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.asm.th = opts.Thresholds
	if !r.asm.th.valid() {
		if r.asm.th != (Thresholds{}) {
			r.logger.Warn("receive thresholds out of order, using defaults", "thresholds", fmt.Sprintf("%+v", r.asm.th))
		}
		r.asm.th = DefaultThresholds()
	}

	r.translate.Store(opts.Translate)
	r.pairs.SetMode(opts.PairEnforce, opts.PairBaseOnly)
	if err := r.pairs.Load(); err != nil {
		r.logger.Warn("pairing table not loaded", "err", err)
	}

	r.lastPacket.Store(r.now().UnixNano())

	return r
}

// Attach starts taking edges from src.
func (r *Receiver) Attach(src EdgeSource) error {
	return src.Listen(r.HandleEdge)
}

func (r *Receiver) SetTranslate(on bool) {
	r.translate.Store(on)
}

// SetFilter changes the repeat filter and starts a fresh burst.
func (r *Receiver) SetFilter(repeats, timeout uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filter.Repeats = repeats
	r.filter.Timeout = timeout
	r.filter.Reset()
}

func (r *Receiver) Stats() *Stats { return r.stats }

func (r *Receiver) Pairing() *PairingTable { return r.pairs }

// StartLearn arms the pairing table for the next confirmed message.
func (r *Receiver) StartLearn(timeout uint8) {
	r.pairs.StartLearn(timeout, r.now())
}

func (r *Receiver) Counters() RxCounters {
	return RxCounters{
		Frames:       r.frames.Load(),
		TimingResets: r.timingResets.Load(),
		BadSymbols:   r.badSymbols.Load(),
		Confirmed:    r.confirmed.Load(),
		Learned:      r.learned.Load(),
		Dropped:      r.dropped.Load(),
		Overwritten:  r.overw.Load(),
	}
}

// TimeSinceLastPacket is the time since the last complete frame, confirmed
// or not.  Before the first frame it counts from when the receiver was made.
func (r *Receiver) TimeSinceLastPacket() time.Duration {
	return r.now().Sub(time.Unix(0, r.lastPacket.Load()))
}

/*------------------------------------------------------------------
 *
 * Name:	HandleEdge
 *
 * Purpose:	Advance the frame assembler by one edge.
 *
 * Description:	Must be called from one goroutine at a time.
 *
 *------------------------------------------------------------------*/

func (r *Receiver) HandleEdge(e Edge) {
	var a = &r.asm
	var c = a.th.Classify(e)

	if c == PulseGap {
		a.state = rxMsgStart
		return
	}

	switch a.state {
	case rxIdle:

	case rxMsgStart:
		switch c {
		case PulseMark:
		case PulseShortSpace:
			a.numBytes = 0
			a.state = rxByteStart
		default:
			r.resetTiming()
		}

	case rxByteStart:
		switch c {
		case PulseMark:
		case PulseShortSpace:
			a.buf, a.bits = 0, 0
			a.state = rxGetByte
		case PulseLongSpace:
			a.buf, a.bits = 0, 1
			a.state = rxGetByte
		default:
			r.resetTiming()
		}

	case rxGetByte:
		switch c {
		case PulseMark:
			r.stats.Record(c, e.Elapsed)
			return
		case PulseShortSpace:
			r.stats.Record(c, e.Elapsed)
			a.buf = a.buf<<1 | 1
			a.bits++
		case PulseLongSpace:
			r.stats.Record(c, e.Elapsed)
			a.buf = a.buf<<2 | 2
			a.bits += 2
		default:
			r.resetTiming()
			return
		}

		switch {
		case a.bits > 8:
			r.resetTiming()
		case a.bits == 8:
			a.frame[a.numBytes] = a.buf
			a.numBytes++
			if a.numBytes >= MessageLen {
				a.state = rxIdle
				r.frameComplete(a.frame)
			} else {
				a.state = rxByteStart
			}
		}
	}
}

func (r *Receiver) resetTiming() {
	r.asm.state = rxIdle
	r.timingResets.Add(1)
}

func (r *Receiver) frameComplete(f Frame) {
	var now = r.now()
	r.lastPacket.Store(now.UnixNano())
	r.frames.Add(1)
	if r.tap != nil {
		r.tap(f)
	}

	var m, err = DecodeFrame(f)
	if err != nil && r.translate.Load() {
		r.badSymbols.Add(1)
		r.logger.Debug("frame dropped", "frame", f.String(), "err", err)
		return
	}

	if r.adaptive && r.stats.Enabled() {
		r.asm.th = r.asm.th.adapt(r.stats.Snapshot())
	}

	r.mu.Lock()
	var ok = r.filter.Observe(f, now)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.confirmed.Add(1)

	if err != nil {
		// Raw mode frame that is not all line codes: nothing to pair on.
		if enforce, _ := r.pairs.Mode(); enforce {
			r.dropped.Add(1)
			return
		}
		r.publish(f)
		return
	}

	var used, learnErr = r.pairs.learn(m, now)
	if used {
		r.learned.Add(1)
		if learnErr != nil {
			r.logger.Warn("learn", "message", m.String(), "err", learnErr)
		} else {
			r.logger.Info("learned", "sender", PairFromMessage(m).String(), "command", m.Command())
		}
		return
	}

	if !r.pairs.Allow(m) {
		r.dropped.Add(1)
		r.logger.Debug("unpaired sender", "message", m.String())
		return
	}

	r.publish(f)
}

func (r *Receiver) publish(f Frame) {
	if r.cell.pending() {
		r.overw.Add(1)
	}
	r.cell.publish(f)

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// HasMessage reports whether a confirmed message is waiting.
func (r *Receiver) HasMessage() bool {
	return r.cell.pending()
}

// Notify is signalled after a confirmed message is published.
// Several messages may share one signal.
func (r *Receiver) Notify() <-chan struct{} {
	return r.notify
}

/*------------------------------------------------------------------
 *
 * Name:	GetMessage
 *
 * Purpose:	Copy out the waiting message and clear it.
 *
 * Inputs:	buf	- Receives length bytes.
 *
 *		length	- 2	command, parameter
 *			  4	command, parameter, room, device
 *			  10	the whole message, symbols or line codes
 *				depending on translation now
 *
 * Returns:	ErrBadLength leaves the message waiting.
 *		ErrNoMessage if nothing is waiting.
 *		The waiting message is kept as received line codes and
 *		decoded here.  One that cannot be decoded is consumed
 *		and ErrInvalidSymbol returned, except for the 10 byte
 *		view with translation off.
 *
 *------------------------------------------------------------------*/

func (r *Receiver) GetMessage(buf []byte, length int) error {
	if (length != 2 && length != 4 && length != MessageLen) || len(buf) < length {
		return ErrBadLength
	}

	var f, ok = r.cell.take()
	if !ok {
		return ErrNoMessage
	}

	if length == MessageLen && !r.translate.Load() {
		copy(buf, f[:])
		return nil
	}

	var m, err = DecodeFrame(f)
	if err != nil {
		return err
	}

	switch length {
	case MessageLen:
		copy(buf, m[:])
	case 4:
		buf[2], buf[3] = m.Room(), m.Device()
		fallthrough
	default:
		buf[0], buf[1] = m.Command(), m.Param()
	}

	return nil
}

// ReadMessage waits for a confirmed message and returns it as GetMessage
// would with length 10.  raw tells which form it is in.  A frame that
// cannot be translated is skipped.
func (r *Receiver) ReadMessage(ctx context.Context) (msg [MessageLen]byte, raw bool, err error) {
	for {
		var f, ok = r.cell.take()
		if ok {
			if !r.translate.Load() {
				return f, true, nil
			}

			var m, decodeErr = DecodeFrame(f)
			if decodeErr == nil {
				return m, false, nil
			}
			r.logger.Debug("untranslatable message skipped", "frame", f.String(), "err", decodeErr)

			continue
		}

		select {
		case <-ctx.Done():
			return [MessageLen]byte{}, false, ctx.Err()
		case <-r.notify:
		}
	}
}
