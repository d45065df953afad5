package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Table of known senders used to filter received messages.
 *
 * Description:	Up to MaxPairs entries, each the address, room and
 *		device of a sender plus the command it was learned with.
 *
 *		When enforcement is on a message passes only if some
 *		entry has the same address and, unless only the base
 *		address is compared, the same room and device.  Messages
 *		meant for every device in a room (Off with a parameter of
 *		ParamAllOff or more, or Mood to DeviceAll) skip the device
 *		comparison.
 *
 *		The table is saved after every change, when a store is
 *		configured, as a count byte followed by MaxPairs records
 *		of pairRecordLen bytes.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"
)

const (
	MaxPairs      = 10
	PairAll       = -1
	pairRecordLen = 8
	pairStoreLen  = 1 + MaxPairs*pairRecordLen
)

type PairEntry struct {
	Address [AddressLen]byte
	Room    byte
	Device  byte
	Command byte
}

// PairFromMessage takes the identity of the sender of m.
func PairFromMessage(m Message) PairEntry {
	return PairEntry{Address: m.Address(), Room: m.Room(), Device: m.Device(), Command: m.Command()}
}

func (e PairEntry) String() string {
	return fmt.Sprintf("%s room %d device %d", FormatAddress(e.Address), e.Room, e.Device)
}

func (e PairEntry) record() (r [pairRecordLen]byte) {
	copy(r[:AddressLen], e.Address[:])
	r[5], r[6], r[7] = e.Room, e.Device, e.Command

	return r
}

func pairFromRecord(r []byte) PairEntry {
	var e PairEntry
	copy(e.Address[:], r[:AddressLen])
	e.Room, e.Device, e.Command = r[5], r[6], r[7]

	return e
}

// allDevices reports whether m addresses a whole room.
func allDevices(m Message) bool {
	return (m.Command() == CmdOff && m.Param() >= ParamAllOff) ||
		(m.Command() == CmdMood && m.Device() == DeviceAll)
}

type PairingTable struct {
	mu       sync.Mutex
	entries  [MaxPairs]PairEntry
	n        int
	enforce  bool
	baseOnly bool

	learning      bool
	learnDeadline time.Time

	store  Store
	offset int
}

// NewPairingTable returns an empty table, saved to store at offset when store is not nil.
func NewPairingTable(store Store, offset int) *PairingTable {
	return &PairingTable{store: store, offset: offset}
}

func (p *PairingTable) SetMode(enforce, baseOnly bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enforce = enforce
	p.baseOnly = baseOnly
}

func (p *PairingTable) Mode() (enforce, baseOnly bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.enforce, p.baseOnly
}

func (p *PairingTable) sameSender(a, b PairEntry, base bool) bool {
	if a.Address != b.Address {
		return false
	}

	return base || (a.Room == b.Room && a.Device == b.Device)
}

func (p *PairingTable) indexLocked(e PairEntry) int {
	for i := range p.n {
		if p.sameSender(p.entries[i], e, false) {
			return i
		}
	}

	return -1
}

/*------------------------------------------------------------------
 *
 * Name:	AddPair
 *
 * Purpose:	Add a sender to the table.
 *
 * Returns:	Number of entries afterwards.
 *
 *		An entry already present is not added twice.  A full
 *		table is left alone and ErrPairingFull returned.
 *
 *------------------------------------------------------------------*/

func (p *PairingTable) AddPair(e PairEntry) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.addLocked(e)
}

func (p *PairingTable) addLocked(e PairEntry) (int, error) {
	if p.indexLocked(e) >= 0 {
		return p.n, nil
	}

	if p.n >= MaxPairs {
		return p.n, ErrPairingFull
	}

	p.entries[p.n] = e
	p.n++

	return p.n, p.saveLocked()
}

// GetPair returns entry index and the entry count.
// With PairAll only the count is meaningful.
func (p *PairingTable) GetPair(index int) (PairEntry, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index == PairAll {
		return PairEntry{}, p.n, nil
	}

	if index < 0 || index >= p.n {
		return PairEntry{}, p.n, fmt.Errorf("pair index %d of %d: %w", index, p.n, ErrNotPaired)
	}

	return p.entries[index], p.n, nil
}

// Pairs returns a copy of every entry.
func (p *PairingTable) Pairs() []PairEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]PairEntry(nil), p.entries[:p.n]...)
}

func (p *PairingTable) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.n
}

// RemovePair deletes every entry matching e at the configured granularity.
func (p *PairingTable) RemovePair(e PairEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.removeLocked(e)
}

func (p *PairingTable) removeLocked(e PairEntry) error {
	var kept int
	for i := range p.n {
		if p.sameSender(p.entries[i], e, p.baseOnly) {
			continue
		}
		p.entries[kept] = p.entries[i]
		kept++
	}

	if kept == p.n {
		return fmt.Errorf("%s: %w", e, ErrNotPaired)
	}

	for i := kept; i < p.n; i++ {
		p.entries[i] = PairEntry{}
	}
	p.n = kept

	return p.saveLocked()
}

func (p *PairingTable) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = [MaxPairs]PairEntry{}
	p.n = 0

	return p.saveLocked()
}

// Allow reports whether a confirmed message may be passed on.
func (p *PairingTable) Allow(m Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enforce {
		return true
	}

	var addr = m.Address()
	for i := range p.n {
		var e = &p.entries[i]
		if e.Address != addr {
			continue
		}
		if p.baseOnly {
			return true
		}
		if e.Room == m.Room() && (allDevices(m) || e.Device == m.Device()) {
			return true
		}
	}

	return false
}

// StartLearn arms the table to take the next confirmed message as a
// pairing request, if it arrives within timeout 100 mS units of now.
func (p *PairingTable) StartLearn(timeout uint8, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.learning = true
	p.learnDeadline = now.Add(time.Duration(timeout) * timeoutUnit)
}

func (p *PairingTable) Learning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.learning
}

/*------------------------------------------------------------------
 *
 * Name:	learn
 *
 * Purpose:	Offer a confirmed message to an armed learn.
 *
 * Returns:	true if the message was used by the learn and must not
 *		be reported.
 *
 * Description:	Learning is one shot.  The first confirmed message
 *		after StartLearn disarms it whether or not it is in
 *		time.  In time, an Off removes the sender and anything
 *		else adds it.  Late, the message is handled normally.
 *
 *------------------------------------------------------------------*/

func (p *PairingTable) learn(m Message, now time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.learning {
		return false, nil
	}

	p.learning = false
	if now.After(p.learnDeadline) {
		return false, nil
	}

	var e = PairFromMessage(m)
	if m.Command() == CmdOff {
		if err := p.removeLocked(e); err != nil {
			return true, err
		}

		return true, nil
	}

	var _, err = p.addLocked(e)

	return true, err
}

func (p *PairingTable) saveLocked() error {
	if p.store == nil {
		return nil
	}

	var buf [pairStoreLen]byte
	buf[0] = byte(p.n)
	for i := range p.n {
		var r = p.entries[i].record()
		copy(buf[1+i*pairRecordLen:], r[:])
	}

	if err := p.store.Save(p.offset, buf[:]); err != nil {
		return fmt.Errorf("save pairs: %w", err)
	}

	return nil
}

// Load replaces the table with the saved copy.  A store that was never
// written reads as an empty table.
func (p *PairingTable) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}

	var buf [pairStoreLen]byte
	if err := p.store.Load(p.offset, buf[:]); err != nil {
		return fmt.Errorf("load pairs: %w", err)
	}

	p.entries = [MaxPairs]PairEntry{}
	p.n = 0

	var n = int(buf[0])
	if n > MaxPairs {
		return nil
	}

	for i := range n {
		p.entries[i] = pairFromRecord(buf[1+i*pairRecordLen:])
	}
	p.n = n

	return nil
}
