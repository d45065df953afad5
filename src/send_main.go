package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Main program to send one LightwaveRF message.
 *
 * Description:	lwrf-send -l 17 -a F2A11 1 0 1 3
 *
 *			On (command 1, parameter 0) to room 1 device 3
 *			from address F2A11, on GPIO 17.
 *
 *		lwrf-send -l 17 --message 1003F2A111
 *
 *			The same message given whole.
 *
 *		The address is kept in the store, so -a is only needed
 *		the first time when --store is used.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func SendMain(args []string, stdout, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("lwrf-send", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var configFile = fs.StringP("config", "c", "", "Configuration file.")
	var chip = fs.String("chip", "", "GPIO chip.")
	var line = fs.IntP("line", "l", -1, "GPIO line offset of the transmitter data pin.")
	var serial = fs.String("serial", "", "Serial port to use instead of GPIO, e.g. /dev/ttyUSB0.")
	var serialLine = fs.String("serial-line", "RTS", "Serial port pin, RTS or DTR.")
	var invert = fs.BoolP("invert", "i", false, "Invert the data pin.")
	var repeats = fs.IntP("repeats", "r", DefaultTxRepeats, "Number of times the message is sent.")
	var period = fs.DurationP("period", "p", DefaultTickPeriod, "Tick period.")
	var gapMultiplier = fs.Uint16("gap-multiplier", 0, "Extra gap units between repeats.")
	var address = fs.StringP("address", "a", "", "Sender address, 5 hex digits.  Saved for later use.")
	var storePath = fs.String("store", "", "File keeping the address between runs.")
	var message = fs.StringP("message", "m", "", "Whole message as 10 hex digits.")
	var logLevel = fs.String("log-level", "", "debug, info, warn or error.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "lwrf-send - Send a LightwaveRF message.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: lwrf-send [options] command param room device\n")
		fmt.Fprintf(stderr, "       lwrf-send [options] --message 1003F2A111\n")
		fmt.Fprintf(stderr, "       lwrf-send [options] --address F2A11\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2 //nolint:mnd
	}

	if *help {
		fs.Usage()
		return 1
	}

	var cfg, err = LoadConfig(*configFile, false)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	if fs.Changed("chip") {
		cfg.Tx.Chip = *chip
	}
	if fs.Changed("line") {
		cfg.Tx.Line = *line
	}
	if fs.Changed("serial") {
		cfg.Tx.Serial = *serial
	}
	if fs.Changed("serial-line") {
		cfg.Tx.SerialLine = *serialLine
	}
	if fs.Changed("invert") {
		cfg.Tx.Invert = *invert
	}
	if fs.Changed("repeats") {
		cfg.Tx.Repeats = *repeats
	}
	if fs.Changed("period") {
		cfg.Tx.Period = *period
	}
	if fs.Changed("gap-multiplier") {
		cfg.Tx.GapMultiplier = *gapMultiplier
	}
	if fs.Changed("address") {
		cfg.Tx.Address = *address
	}
	if fs.Changed("store") {
		cfg.Store.Path = *storePath
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	var logger = NewLogger(stderr, cfg.Log.Level, "lwrf-send")
	cfg.Normalize(logger)

	var send func(tx *Transmitter) error
	switch {
	case *message != "":
		var m, parseErr = ParseMessage(*message)
		if parseErr != nil {
			logger.Error("bad message", "err", parseErr)
			return 1
		}
		send = func(tx *Transmitter) error { return tx.Send(m) }
	case fs.NArg() == 4: //nolint:mnd
		var v, parseErr = parseBytes(fs.Args())
		if parseErr != nil {
			logger.Error("bad command", "err", parseErr)
			return 1
		}
		send = func(tx *Transmitter) error { return tx.SendCommand(v[0], v[1], v[2], v[3]) }
	case fs.NArg() == 0 && cfg.Tx.Address != "":
		// Only setting the address.
	default:
		fs.Usage()
		return 1
	}

	var store, storeCloser, storeErr = OpenStore(cfg)
	if storeErr != nil {
		logger.Error("store", "err", storeErr)
		return 1
	}
	defer storeCloser.Close()

	var tx, txCloser, txErr = OpenTransmitter(cfg, store, logger)
	if txErr != nil {
		logger.Error("transmitter", "err", txErr)
		return 1
	}
	defer txCloser.Close()

	if send == nil {
		fmt.Fprintf(stdout, "address %s\n", FormatAddress(tx.Address()))
		return 0
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := send(tx); err != nil {
		logger.Error("send", "err", err)
		return 1
	}

	if err := tx.Wait(ctx); err != nil {
		logger.Warn("interrupted while sending", "err", err)
		return 1
	}

	logger.Info("sent", "frames", tx.FramesSent(), "line_errors", tx.LineErrors())

	return 0
}
