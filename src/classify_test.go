package lwrf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Classify(t *testing.T) {
	var th = DefaultThresholds()
	var us = time.Microsecond

	for _, tc := range []struct {
		level   bool
		elapsed time.Duration
		want    PulseCategory
	}{
		{false, 100 * us, PulseInvalid},
		{true, 119 * us, PulseInvalid},
		{false, 120 * us, PulseMark},
		{false, 280 * us, PulseMark},
		{false, 499 * us, PulseMark},
		{false, 500 * us, PulseInvalid},
		{false, 20 * time.Millisecond, PulseInvalid},
		{true, 280 * us, PulseShortSpace},
		{true, 500 * us, PulseLongSpace},
		{true, 1260 * us, PulseLongSpace},
		{true, 2000 * us, PulseInvalid},
		{true, 5000 * us, PulseInvalid},
		{true, 5001 * us, PulseGap},
		{true, time.Hour, PulseGap},
	} {
		var e = Edge{Level: tc.level, Elapsed: tc.elapsed}
		assert.Equal(t, tc.want, th.Classify(e), "%+v", e)
	}
}

func Test_ThresholdsValid(t *testing.T) {
	assert.True(t, DefaultThresholds().valid())
	assert.False(t, Thresholds{}.valid())

	var th = DefaultThresholds()
	th.Short = th.Long
	assert.False(t, th.valid())
}

func Test_ThresholdsAdapt(t *testing.T) {
	var th = DefaultThresholds()

	var s = StatsSnapshot{
		Mark:       PulseStat{Average: 300},
		ShortSpace: PulseStat{Average: 260},
		LongSpace:  PulseStat{Average: 1300},
	}
	assert.Equal(t, 800*time.Microsecond, th.adapt(s).Short)

	// Kept clear of the noise band.
	s.Mark.Average, s.ShortSpace.Average, s.LongSpace.Average = 10, 10, 200
	assert.Equal(t, 2*th.Noise, th.adapt(s).Short)

	// And of the long limit.
	s.Mark.Average, s.LongSpace.Average = 1900, 5000
	assert.Equal(t, th.Long-th.Noise, th.adapt(s).Short)

	// Nonsense leaves it alone.
	s.Mark.Average, s.LongSpace.Average = 900, 400
	assert.Equal(t, th, th.adapt(s))
}

func Test_PulseCategoryString(t *testing.T) {
	assert.Equal(t, "mark", PulseMark.String())
	assert.Equal(t, "gap", PulseGap.String())
}
