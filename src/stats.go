package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Running pulse width figures for calibration.
 *
 * Description:	For each of mark, long space (0 bit) and short space
 *		(1 bit) keep a smoothed average, the widest and the
 *		narrowest pulse seen.  The average is held scaled by 16
 *		and updated with weight 1/16:
 *
 *			ave16 = ave16 - ave16/16 + width
 *
 *		so ave16/16 tracks the width without any division on
 *		the edge path.
 *
 *		The seeds are the nominal widths for a 140 uS tick with
 *		min and max set so that the first real pulse replaces them.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
	"time"
)

// PulseStat is one category's figures in microseconds.
type PulseStat struct {
	Average uint16
	Max     uint16
	Min     uint16
}

// StatsSnapshot is a copy of every category.
type StatsSnapshot struct {
	Mark       PulseStat
	LongSpace  PulseStat
	ShortSpace PulseStat
}

// Values flattens the snapshot as mark, 0 bit space, 1 bit space,
// each as average, max, min.
func (s StatsSnapshot) Values() [9]uint16 {
	return [9]uint16{
		s.Mark.Average, s.Mark.Max, s.Mark.Min,
		s.LongSpace.Average, s.LongSpace.Max, s.LongSpace.Min,
		s.ShortSpace.Average, s.ShortSpace.Max, s.ShortSpace.Min,
	}
}

type pulseAccum struct {
	ave16 uint32
	max   uint32
	min   uint32
}

func (a *pulseAccum) record(us uint32) {
	a.ave16 = a.ave16 - a.ave16>>4 + us
	if us > a.max {
		a.max = us
	}
	if us < a.min {
		a.min = us
	}
}

func (a *pulseAccum) stat() PulseStat {
	return PulseStat{Average: clamp16(a.ave16 >> 4), Max: clamp16(a.max), Min: clamp16(a.min)}
}

func clamp16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}

	return uint16(v)
}

var statSeeds = [3]pulseAccum{
	{ave16: 5000, max: 0, min: 5000},
	{ave16: 20000, max: 0, min: 2500},
	{ave16: 4000, max: 0, min: 500},
}

// Stats collects pulse widths by category.  The zero value is not ready;
// use NewStats.
type Stats struct {
	mu      sync.Mutex
	enabled bool
	cat     [3]pulseAccum // mark, long space, short space
}

func NewStats(enabled bool) *Stats {
	var s = &Stats{enabled: enabled}
	s.cat = statSeeds

	return s
}

func (s *Stats) Enable(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = on
}

func (s *Stats) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

// Reset starts a new collection epoch from the seeds.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cat = statSeeds
}

// Record adds one pulse.  Categories other than mark and the two
// bit spaces are ignored, as is everything while disabled.
func (s *Stats) Record(c PulseCategory, width time.Duration) {
	var i int
	switch c {
	case PulseMark:
		i = 0
	case PulseLongSpace:
		i = 1
	case PulseShortSpace:
		i = 2
	default:
		return
	}

	var us = width.Microseconds()
	if us < 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	s.cat[i].record(uint32(min(us, 0xFFFF)))
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatsSnapshot{
		Mark:       s.cat[0].stat(),
		LongSpace:  s.cat[1].stat(),
		ShortSpace: s.cat[2].stat(),
	}
}
