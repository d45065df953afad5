package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Main program to print LightwaveRF messages as they are
 *		received.
 *
 * Description:	lwrf-recv -l 27
 *
 *		Each confirmed message is printed on one line.  With
 *		--stats-interval the pulse width figures are logged
 *		every so often, which helps when placing the receiver
 *		or checking a transmitter's timing.
 *
 *		--learn 100 pairs (or, with an Off, unpairs) the first
 *		sender heard within the next ten seconds.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

// FormatMessageLine is how lwrf-recv prints a message.
func FormatMessageLine(msg [MessageLen]byte, raw bool) string {
	if raw {
		return "RX " + FormatReceived(msg, true)
	}

	var m = Message(msg)

	return fmt.Sprintf("RX %s command=%d param=%d room=%d device=%d address=%s",
		m, m.Command(), m.Param(), m.Room(), m.Device(), FormatAddress(m.Address()))
}

func reportStats(logger *log.Logger, rx *Receiver) {
	var s = rx.Stats().Snapshot()
	var c = rx.Counters()

	logger.Info("pulse widths uS",
		"mark", fmt.Sprintf("%d/%d/%d", s.Mark.Average, s.Mark.Min, s.Mark.Max),
		"zero", fmt.Sprintf("%d/%d/%d", s.LongSpace.Average, s.LongSpace.Min, s.LongSpace.Max),
		"one", fmt.Sprintf("%d/%d/%d", s.ShortSpace.Average, s.ShortSpace.Min, s.ShortSpace.Max))
	logger.Info("frames",
		"assembled", c.Frames, "confirmed", c.Confirmed, "dropped", c.Dropped,
		"timing_resets", c.TimingResets, "bad_symbols", c.BadSymbols)
}

func RecvMain(args []string, stdout, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("lwrf-recv", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var configFile = fs.StringP("config", "c", "", "Configuration file.")
	var chip = fs.String("chip", "", "GPIO chip.")
	var line = fs.IntP("line", "l", -1, "GPIO line offset of the receiver data pin.")
	var pullUp = fs.Bool("pull-up", false, "Enable the pull up on the data pin.")
	var activeLow = fs.Bool("active-low", false, "The data pin is low while the carrier is on.")
	var raw = fs.Bool("raw", false, "Show line codes instead of symbols.")
	var repeats = fs.Uint8P("repeats", "r", DefaultRxRepeats, "Extra identical copies needed to accept a message.")
	var timeout = fs.Uint8P("timeout", "t", DefaultRxTimeout, "Time allowed between copies, 100 mS units.")
	var enforce = fs.Bool("enforce", false, "Only accept paired senders.")
	var baseOnly = fs.Bool("base-only", false, "Pair on address only, not room and device.")
	var learn = fs.Uint8("learn", 0, "Pair the first sender heard within this time, 100 mS units.")
	var adaptive = fs.Bool("adaptive", false, "Adjust the 1/0 boundary from measured pulse widths.")
	var statsInterval = fs.Duration("stats-interval", 0, "Log pulse statistics this often.")
	var messageLog = fs.StringP("message-log", "L", "", "CSV log file, may contain strftime codes.")
	var timestamp = fs.StringP("timestamp", "T", "", "Precede each message with a strftime formatted time.")
	var storePath = fs.String("store", "", "File keeping the pairing table between runs.")
	var logLevel = fs.String("log-level", "", "debug, info, warn or error.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "lwrf-recv - Print received LightwaveRF messages.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: lwrf-recv [options]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2 //nolint:mnd
	}

	if *help || fs.NArg() != 0 {
		fs.Usage()
		return 1
	}

	var cfg, err = LoadConfig(*configFile, false)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	if fs.Changed("chip") {
		cfg.Rx.Chip = *chip
	}
	if fs.Changed("line") {
		cfg.Rx.Line = *line
	}
	if fs.Changed("pull-up") {
		cfg.Rx.PullUp = *pullUp
	}
	if fs.Changed("active-low") {
		cfg.Rx.ActiveLow = *activeLow
	}
	if fs.Changed("raw") {
		cfg.Rx.Translate = !*raw
	}
	if fs.Changed("repeats") {
		cfg.Rx.Repeats = *repeats
	}
	if fs.Changed("timeout") {
		cfg.Rx.Timeout = *timeout
	}
	if fs.Changed("enforce") {
		cfg.Rx.PairEnforce = *enforce
	}
	if fs.Changed("base-only") {
		cfg.Rx.PairBaseOnly = *baseOnly
	}
	if fs.Changed("adaptive") {
		cfg.Rx.Adaptive = *adaptive
	}
	if fs.Changed("message-log") {
		cfg.MessageLog = *messageLog
	}
	if fs.Changed("store") {
		cfg.Store.Path = *storePath
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	var logger = NewLogger(stderr, cfg.Log.Level, "lwrf-recv")
	cfg.Normalize(logger)

	var stamp *strftime.Strftime
	if *timestamp != "" {
		if stamp, err = strftime.New(*timestamp); err != nil {
			logger.Error("bad timestamp format", "err", err)
			return 1
		}
	}

	var mlog *MessageLog
	if cfg.MessageLog != "" {
		if mlog, err = NewMessageLog(cfg.MessageLog); err != nil {
			logger.Error("message log", "err", err)
			return 1
		}
		defer mlog.Close()
	}

	var store, storeCloser, storeErr = OpenStore(cfg)
	if storeErr != nil {
		logger.Error("store", "err", storeErr)
		return 1
	}
	defer storeCloser.Close()

	var rx, rxCloser, rxErr = OpenReceiver(cfg, store, logger)
	if rxErr != nil {
		logger.Error("receiver", "err", rxErr)
		return 1
	}
	defer rxCloser.Close()

	if *learn > 0 {
		rx.StartLearn(*learn)
		logger.Info("learning", "for", time.Duration(*learn)*timeoutUnit)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *statsInterval > 0 {
		go func() {
			var t = time.NewTicker(*statsInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					reportStats(logger, rx)
				}
			}
		}()
	}

	for {
		var msg, isRaw, readErr = rx.ReadMessage(ctx)
		if readErr != nil {
			break
		}

		var now = time.Now()
		var text = FormatMessageLine(msg, isRaw)
		if stamp != nil {
			text = stamp.FormatString(now) + " " + text
		}
		fmt.Fprintln(stdout, text)

		if mlog != nil {
			if err := mlog.Write(msg, isRaw, now); err != nil {
				logger.Warn("message log", "err", err)
			}
		}
	}

	if *statsInterval > 0 {
		reportStats(logger, rx)
	}

	return 0
}
