package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Read the configuration file shared by the tools.
 *
 * Description:	YAML, every key optional.  A typical file:
 *
 *		log:
 *		  level: info
 *		tx:
 *		  chip: gpiochip0
 *		  line: 17
 *		  repeats: 12
 *		  address: F2A11
 *		rx:
 *		  chip: gpiochip0
 *		  line: 27
 *		  pair_enforce: true
 *		store:
 *		  path: /var/lib/lwrf/store
 *		server:
 *		  listen: ":9434"
 *		  dns_sd: true
 *		message_log: /var/log/lwrf/%Y-%m-%d.csv
 *
 *		Out of range values are put back to their defaults with
 *		a warning rather than refused; a badly configured radio
 *		still works.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level string `yaml:"level"`
}

type TickConfig struct {
	Low   uint8 `yaml:"low"`
	High  uint8 `yaml:"high"`
	Trail uint8 `yaml:"trail"`
	Gap   uint8 `yaml:"gap"`
}

type TxConfig struct {
	Chip          string        `yaml:"chip"`
	Line          int           `yaml:"line"`
	Serial        string        `yaml:"serial"`      // use a serial port instead of GPIO
	SerialLine    string        `yaml:"serial_line"` // RTS or DTR
	Invert        bool          `yaml:"invert"`
	Repeats       int           `yaml:"repeats"`
	Period        time.Duration `yaml:"period"`
	Ticks         TickConfig    `yaml:"ticks"`
	GapMultiplier uint16        `yaml:"gap_multiplier"`
	Address       string        `yaml:"address"`
	StoreOffset   int           `yaml:"store_offset"`
}

type RxConfig struct {
	Chip         string `yaml:"chip"`
	Line         int    `yaml:"line"`
	PullUp       bool   `yaml:"pull_up"`
	ActiveLow    bool   `yaml:"active_low"`
	Translate    bool   `yaml:"translate"`
	Repeats      uint8  `yaml:"repeats"`
	Timeout      uint8  `yaml:"timeout"`
	PairEnforce  bool   `yaml:"pair_enforce"`
	PairBaseOnly bool   `yaml:"pair_base_only"`
	Stats        bool   `yaml:"stats"`
	Adaptive     bool   `yaml:"adaptive"`
	StoreOffset  int    `yaml:"store_offset"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Listen    string `yaml:"listen"`
	DNSSD     bool   `yaml:"dns_sd"`
	DNSSDName string `yaml:"dns_sd_name"`
	Pty       bool   `yaml:"pty"`
	PtyLink   string `yaml:"pty_link"`
}

type Config struct {
	Log        LogConfig    `yaml:"log"`
	Tx         TxConfig     `yaml:"tx"`
	Rx         RxConfig     `yaml:"rx"`
	Store      StoreConfig  `yaml:"store"`
	Server     ServerConfig `yaml:"server"`
	MessageLog string       `yaml:"message_log"`
}

const (
	DefaultTxStoreOffset = 0
	DefaultRxStoreOffset = 16
	DefaultListen        = ":9434"
)

func DefaultConfig() Config {
	var t = DefaultTxTiming()

	return Config{
		Log: LogConfig{Level: "info"},
		Tx: TxConfig{
			Chip:          "gpiochip0",
			Line:          -1,
			SerialLine:    "RTS",
			Repeats:       DefaultTxRepeats,
			Period:        DefaultTickPeriod,
			Ticks:         TickConfig{Low: t.Low, High: t.High, Trail: t.Trail, Gap: t.Gap},
			GapMultiplier: t.GapMultiplier,
			StoreOffset:   DefaultTxStoreOffset,
		},
		Rx: RxConfig{
			Chip:        "gpiochip0",
			Line:        -1,
			Translate:   true,
			Repeats:     DefaultRxRepeats,
			Timeout:     DefaultRxTimeout,
			Stats:       true,
			StoreOffset: DefaultRxStoreOffset,
		},
		Server: ServerConfig{Listen: DefaultListen},
	}
}

// LoadConfig reads path over the defaults.  A missing file is not an
// error when optional is true.
func LoadConfig(path string, optional bool) (Config, error) {
	var c = DefaultConfig()
	if path == "" {
		return c, nil
	}

	var data, err = os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}

		return c, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}

	return c, nil
}

/*------------------------------------------------------------------
 *
 * Name:	Normalize
 *
 * Purpose:	Replace out of range values with defaults.
 *
 * Description:	Each replacement is logged at Warn level.
 *
 *------------------------------------------------------------------*/

func (c *Config) Normalize(logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		logger.Warn("unknown log level, using info", "level", c.Log.Level)
		c.Log.Level = "info"
	}

	if c.Tx.Repeats < 1 || c.Tx.Repeats > MaxTxRepeats {
		logger.Warn("tx.repeats out of range, using default", "repeats", c.Tx.Repeats, "default", DefaultTxRepeats)
		c.Tx.Repeats = DefaultTxRepeats
	}

	if c.Tx.Period <= minTickPeriod || c.Tx.Period >= maxTickPeriod {
		logger.Warn("tx.period out of range, using default", "period", c.Tx.Period, "default", DefaultTickPeriod)
		c.Tx.Period = DefaultTickPeriod
	}

	var t, changed = c.Tx.timing().normalize()
	if changed {
		logger.Warn("tx.ticks adjusted", "low", t.Low, "high", t.High, "trail", t.Trail, "gap", t.Gap)
		c.Tx.Ticks = TickConfig{Low: t.Low, High: t.High, Trail: t.Trail, Gap: t.Gap}
	}

	if c.Tx.Address != "" {
		if _, err := ParseAddress(c.Tx.Address); err != nil {
			logger.Warn("tx.address ignored", "err", err)
			c.Tx.Address = ""
		}
	}

	if c.Rx.Timeout == 0 {
		logger.Warn("rx.timeout of 0 would expire every repeat, using default", "default", DefaultRxTimeout)
		c.Rx.Timeout = DefaultRxTimeout
	}

	if c.Tx.StoreOffset < 0 || c.Tx.StoreOffset+AddressLen > DefaultStoreSize {
		logger.Warn("tx.store_offset out of range, using default", "offset", c.Tx.StoreOffset)
		c.Tx.StoreOffset = DefaultTxStoreOffset
	}

	if c.Rx.StoreOffset < 0 || c.Rx.StoreOffset+pairStoreLen > DefaultStoreSize {
		logger.Warn("rx.store_offset out of range, using default", "offset", c.Rx.StoreOffset)
		c.Rx.StoreOffset = DefaultRxStoreOffset
	}

	// The address and the pairing table share one store.
	var txEnd, rxEnd = c.Tx.StoreOffset + AddressLen, c.Rx.StoreOffset + pairStoreLen
	if c.Tx.StoreOffset < rxEnd && c.Rx.StoreOffset < txEnd {
		logger.Warn("tx.store_offset and rx.store_offset overlap, using defaults",
			"tx", c.Tx.StoreOffset, "rx", c.Rx.StoreOffset)
		c.Tx.StoreOffset = DefaultTxStoreOffset
		c.Rx.StoreOffset = DefaultRxStoreOffset
	}
}

func (t TxConfig) timing() TxTiming {
	return TxTiming{Low: t.Ticks.Low, High: t.Ticks.High, Trail: t.Ticks.Trail, Gap: t.Ticks.Gap, GapMultiplier: t.GapMultiplier}
}

// TxOptions builds transmitter options.  store may be nil.
func (c Config) TxOptions(store Store, logger *log.Logger) TxOptions {
	return TxOptions{
		Invert:      c.Tx.Invert,
		Repeats:     c.Tx.Repeats,
		Period:      c.Tx.Period,
		Timing:      c.Tx.timing(),
		Store:       store,
		StoreOffset: c.Tx.StoreOffset,
		Logger:      logger,
	}
}

// RxOptions builds receiver options.  store may be nil.
func (c Config) RxOptions(store Store, logger *log.Logger) RxOptions {
	return RxOptions{
		Translate:    c.Rx.Translate,
		Repeats:      c.Rx.Repeats,
		Timeout:      c.Rx.Timeout,
		PairEnforce:  c.Rx.PairEnforce,
		PairBaseOnly: c.Rx.PairBaseOnly,
		Stats:        c.Rx.Stats,
		Adaptive:     c.Rx.Adaptive,
		Thresholds:   DefaultThresholds(),
		Store:        store,
		StoreOffset:  c.Rx.StoreOffset,
		Logger:       logger,
	}
}
