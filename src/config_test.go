package lwrf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()

	var path = filepath.Join(t.TempDir(), "lwrf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	return path
}

func Test_LoadConfigDefaults(t *testing.T) {
	var c, err = LoadConfig("", false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	c, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.ErrorContains(t, err, "read config")
}

func Test_LoadConfig(t *testing.T) {
	var path = writeConfig(t, `
log:
  level: debug
tx:
  line: 17
  invert: true
  repeats: 6
  period: 150us
  ticks:
    low: 8
  gap_multiplier: 2
  address: F2A11
rx:
  line: 27
  pull_up: true
  repeats: 1
  pair_enforce: true
store:
  path: /var/lib/lwrf/store
server:
  listen: "127.0.0.1:9000"
  dns_sd: true
  pty: true
  pty_link: /tmp/lwrf
message_log: /var/log/lwrf/%Y-%m-%d.csv
`)

	var c, err = LoadConfig(path, false)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 17, c.Tx.Line)
	assert.Equal(t, "gpiochip0", c.Tx.Chip, "default kept")
	assert.True(t, c.Tx.Invert)
	assert.Equal(t, 6, c.Tx.Repeats)
	assert.Equal(t, 150*time.Microsecond, c.Tx.Period)
	assert.Equal(t, TickConfig{Low: 8, High: 4, Trail: 2, Gap: 72}, c.Tx.Ticks)
	assert.Equal(t, uint16(2), c.Tx.GapMultiplier)
	assert.Equal(t, "F2A11", c.Tx.Address)
	assert.Equal(t, 27, c.Rx.Line)
	assert.True(t, c.Rx.PullUp)
	assert.True(t, c.Rx.Translate, "default kept")
	assert.Equal(t, uint8(1), c.Rx.Repeats)
	assert.True(t, c.Rx.PairEnforce)
	assert.Equal(t, "/var/lib/lwrf/store", c.Store.Path)
	assert.Equal(t, ServerConfig{Listen: "127.0.0.1:9000", DNSSD: true, Pty: true, PtyLink: "/tmp/lwrf"}, c.Server)
	assert.Equal(t, "/var/log/lwrf/%Y-%m-%d.csv", c.MessageLog)

	var opts = c.TxOptions(nil, nil)
	assert.Equal(t, TxTiming{Low: 8, High: 4, Trail: 2, Gap: 72, GapMultiplier: 2}, opts.Timing)
	assert.Equal(t, 150*time.Microsecond, opts.Period)

	var ropts = c.RxOptions(nil, nil)
	assert.True(t, ropts.PairEnforce)
	assert.Equal(t, DefaultThresholds(), ropts.Thresholds)
	assert.Equal(t, DefaultRxStoreOffset, ropts.StoreOffset)
}

func Test_LoadConfigBadYAML(t *testing.T) {
	var _, err = LoadConfig(writeConfig(t, "tx: [1, 2"), false)
	require.ErrorContains(t, err, "parse config")
}

func Test_ConfigNormalize(t *testing.T) {
	var c = DefaultConfig()
	c.Log.Level = "loud"
	c.Tx.Repeats = 41
	c.Tx.Period = 10 * time.Microsecond
	c.Tx.Ticks = TickConfig{Low: 0, High: 4, Trail: 4, Gap: 72}
	c.Tx.Address = "nope"
	c.Rx.Timeout = 0
	c.Tx.StoreOffset = DefaultStoreSize
	c.Rx.StoreOffset = -1

	var buf bytes.Buffer
	c.Normalize(NewLogger(&buf, "warn", ""))

	var want = DefaultConfig()
	want.Log.Level = "info"
	assert.Equal(t, want, c)

	for _, s := range []string{"log level", "tx.repeats", "tx.period", "tx.ticks", "tx.address", "rx.timeout", "tx.store_offset", "rx.store_offset"} {
		assert.Contains(t, buf.String(), s)
	}
}

func Test_ConfigNormalizeKeepsGoodValues(t *testing.T) {
	var c = DefaultConfig()
	c.Tx.Repeats = 40
	c.Tx.Period = 999 * time.Microsecond
	c.Tx.Address = "f2a11"

	var buf bytes.Buffer
	c.Normalize(NewLogger(&buf, "warn", ""))

	assert.Equal(t, 40, c.Tx.Repeats)
	assert.Equal(t, 999*time.Microsecond, c.Tx.Period)
	assert.Equal(t, "f2a11", c.Tx.Address)
	assert.Empty(t, buf.String())
}

func Test_ConfigNormalizeStoreOverlap(t *testing.T) {
	for _, tc := range []struct {
		name     string
		tx, rx   int
		overlaps bool
	}{
		{"pairs over the address", 0, 4, true},
		{"address inside the pairs", 50, 16, true},
		{"address just after the pairs", 16 + pairStoreLen, 16, false},
		{"pairs just after the address", 0, AddressLen, false},
		{"address at the end", DefaultStoreSize - AddressLen, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var c = DefaultConfig()
			c.Tx.StoreOffset = tc.tx
			c.Rx.StoreOffset = tc.rx

			var buf bytes.Buffer
			c.Normalize(NewLogger(&buf, "warn", ""))

			if tc.overlaps {
				assert.Equal(t, DefaultTxStoreOffset, c.Tx.StoreOffset)
				assert.Equal(t, DefaultRxStoreOffset, c.Rx.StoreOffset)
				assert.Contains(t, buf.String(), "overlap")
			} else {
				assert.Equal(t, tc.tx, c.Tx.StoreOffset)
				assert.Equal(t, tc.rx, c.Rx.StoreOffset)
				assert.Empty(t, buf.String())
			}
		})
	}
}
