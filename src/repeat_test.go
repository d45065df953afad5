package lwrf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_RepeatFilterConfirms(t *testing.T) {
	var f = NewRepeatFilter(2, 20)
	var a = onMsg.Frame()
	var now = time.Unix(100, 0)

	assert.False(t, f.Observe(a, now))
	assert.False(t, f.Observe(a, now.Add(80*time.Millisecond)))
	assert.True(t, f.Observe(a, now.Add(160*time.Millisecond)))
	assert.False(t, f.Observe(a, now.Add(240*time.Millisecond)), "reported once per burst")
	assert.Equal(t, 4, f.Count())
}

func Test_RepeatFilterZeroRepeats(t *testing.T) {
	var f = NewRepeatFilter(0, 20)
	var now = time.Unix(100, 0)

	assert.True(t, f.Observe(onMsg.Frame(), now))
	assert.False(t, f.Observe(onMsg.Frame(), now))
}

func Test_RepeatFilterDifferentFrameRestarts(t *testing.T) {
	var f = NewRepeatFilter(1, 20)
	var a, b = onMsg.Frame(), NewMessage(CmdOff, 0, 1, 3, testAddr).Frame()
	var now = time.Unix(100, 0)

	assert.False(t, f.Observe(a, now))
	assert.False(t, f.Observe(b, now))
	assert.Equal(t, 1, f.Count())
	assert.True(t, f.Observe(b, now))
	assert.False(t, f.Observe(a, now))
	assert.True(t, f.Observe(a, now))
}

func Test_RepeatFilterTimeout(t *testing.T) {
	var f = NewRepeatFilter(1, 20)
	var a = onMsg.Frame()
	var now = time.Unix(100, 0)

	assert.False(t, f.Observe(a, now))
	// 2.099 S is 20 whole units, still in time.
	assert.True(t, f.Observe(a, now.Add(2099*time.Millisecond)))

	f.Reset()
	assert.False(t, f.Observe(a, now))
	// 21 units is too late, the count starts again.
	assert.False(t, f.Observe(a, now.Add(2100*time.Millisecond)))
	assert.Equal(t, 1, f.Count())
}

func Test_RepeatFilterTimeoutGranularity(t *testing.T) {
	var now = time.Unix(100, 0)

	for _, tc := range []struct {
		after     time.Duration
		confirmed bool
		count     int
	}{
		{1999 * time.Millisecond, true, 2},
		{2000 * time.Millisecond, true, 2},
		{2050 * time.Millisecond, true, 2},
		{2099 * time.Millisecond, true, 2},
		{2100 * time.Millisecond, false, 1},
		{2150 * time.Millisecond, false, 1},
		{time.Hour, false, 1},
	} {
		t.Run(tc.after.String(), func(t *testing.T) {
			var f = NewRepeatFilter(1, 20)
			var a = onMsg.Frame()

			require.False(t, f.Observe(a, now))
			assert.Equal(t, tc.confirmed, f.Observe(a, now.Add(tc.after)))
			assert.Equal(t, tc.count, f.Count())
		})
	}
}

func Test_RepeatFilterReset(t *testing.T) {
	var f = NewRepeatFilter(1, 20)
	var now = time.Unix(100, 0)

	assert.False(t, f.Observe(onMsg.Frame(), now))
	f.Reset()
	assert.Zero(t, f.Count())
	assert.False(t, f.Observe(onMsg.Frame(), now))
	assert.True(t, f.Observe(onMsg.Frame(), now))
}

func Test_RepeatFilterConfirmsExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var repeats = rapid.Uint8Range(0, 10).Draw(t, "repeats")
		var copies = rapid.IntRange(1, 30).Draw(t, "copies")

		var f = NewRepeatFilter(repeats, 20)
		var now = time.Unix(100, 0)
		var confirmed int
		for range copies {
			if f.Observe(onMsg.Frame(), now) {
				confirmed++
			}
			now = now.Add(100 * time.Millisecond)
		}

		if copies > int(repeats) {
			assert.Equal(t, 1, confirmed)
		} else {
			assert.Zero(t, confirmed)
		}
	})
}
