package lwrf

import "time"

// PulseCategory is what one interval between edges was taken to be.
type PulseCategory int

const (
	PulseInvalid    PulseCategory = iota
	PulseMark                     // line was active
	PulseShortSpace               // 1 bit
	PulseLongSpace                // 1 bit followed by a 0 bit
	PulseGap                      // message boundary
)

func (c PulseCategory) String() string {
	switch c {
	case PulseMark:
		return "mark"
	case PulseShortSpace:
		return "short"
	case PulseLongSpace:
		return "long"
	case PulseGap:
		return "gap"
	default:
		return "invalid"
	}
}

// Thresholds are the band edges for classifying intervals.
//
//	below Noise		glitch
//	Noise to Short		mark, or space of a 1 bit
//	Short to Long		space of a 1 bit then a 0 bit
//	Long to Gap		nothing legal
//	above Gap		gap between messages
type Thresholds struct {
	Noise time.Duration
	Short time.Duration
	Long  time.Duration
	Gap   time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Noise: 120 * time.Microsecond,
		Short: 500 * time.Microsecond,
		Long:  2000 * time.Microsecond,
		Gap:   5000 * time.Microsecond,
	}
}

// valid reports whether the bands are in increasing order.
func (th Thresholds) valid() bool {
	return th.Noise > 0 && th.Noise < th.Short && th.Short < th.Long && th.Long <= th.Gap
}

// Classify places one edge in a category.  The level after the edge says
// which kind of pulse just ended: a falling edge ends a mark and a rising
// edge ends a space.
func (th Thresholds) Classify(e Edge) PulseCategory {
	var d = e.Elapsed
	if d < th.Noise {
		return PulseInvalid
	}

	if !e.Level {
		if d < th.Short {
			return PulseMark
		}

		return PulseInvalid
	}

	switch {
	case d < th.Short:
		return PulseShortSpace
	case d < th.Long:
		return PulseLongSpace
	case d > th.Gap:
		return PulseGap
	default:
		return PulseInvalid
	}
}

// adapt moves the mark/short boundary to halfway between the wider of the
// mark and 1 bit averages and the 0 bit average.  The result is kept at
// least one noise width clear of the neighbouring bands.
func (th Thresholds) adapt(s StatsSnapshot) Thresholds {
	var short = time.Duration(max(s.Mark.Average, s.ShortSpace.Average)) * time.Microsecond
	var long = time.Duration(s.LongSpace.Average) * time.Microsecond
	if long <= short {
		return th
	}

	var mid = (short + long) / 2
	var lo, hi = 2 * th.Noise, th.Long - th.Noise
	mid = max(lo, min(mid, hi))

	th.Short = mid

	return th
}
