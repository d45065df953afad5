package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for a tool that shows the pulse train for a
 *		message, or decodes a recorded pulse train, without any
 *		radio hardware.
 *
 * Inputs:	A message as ten hex digits, or the fields as options.
 *
 *		With --decode, lines of "level microseconds" on stdin,
 *		the same format it writes.
 *
 * Outputs:	stdout
 *
 * Description:	lwrf-pulses 1003F2A111 > on.txt
 *		lwrf-pulses --decode < on.txt
 *
 *		A capture from a logic analyser can be decoded the same
 *		way once it is in this format.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func PulsesMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("lwrf-pulses", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var repeats = fs.IntP("repeats", "r", DefaultTxRepeats, "Number of times the message is sent.")
	var period = fs.DurationP("period", "p", DefaultTickPeriod, "Tick period.")
	var invert = fs.BoolP("invert", "i", false, "Invert the line.")
	var low = fs.Uint8("low", DefaultTxTiming().Low, "Extra ticks of space for a 0 bit.")
	var high = fs.Uint8("high", DefaultTxTiming().High, "Ticks from one mark to the next for a 1 bit.")
	var trail = fs.Uint8("trail", DefaultTxTiming().Trail, "Tick count at which a mark ends.")
	var gap = fs.Uint8("gap", DefaultTxTiming().Gap, "Ticks of gap between repeats.")
	var gapMultiplier = fs.Uint16("gap-multiplier", 0, "Extra gap units between repeats.")
	var command = fs.Uint8P("command", "C", CmdOn, "Command, when no message is given.")
	var param = fs.Uint8P("param", "P", 0, "Parameter, when no message is given.")
	var room = fs.Uint8P("room", "R", 1, "Room, when no message is given.")
	var device = fs.Uint8P("device", "D", 1, "Device, when no message is given.")
	var address = fs.StringP("address", "a", "F2A11", "Sender address, when no message is given.")
	var summary = fs.BoolP("summary", "s", false, "Print the frame and a decode check instead of the pulses.")
	var decode = fs.BoolP("decode", "d", false, "Decode pulses read from stdin.")
	var rxRepeats = fs.Uint8("rx-repeats", DefaultRxRepeats, "Extra copies needed to confirm, when decoding.")
	var raw = fs.Bool("raw", false, "Show line codes, not symbols, when decoding.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "lwrf-pulses - Show or decode LightwaveRF pulse trains.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: lwrf-pulses [options] [message]\n")
		fmt.Fprintf(stderr, "       lwrf-pulses --decode [options] < pulses.txt\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "The message is ten hex digits: command, parameter (2), device,\n")
		fmt.Fprintf(stderr, "address (5), room.\n")
	}

	if err := fs.Parse(args); err != nil {
		return 2 //nolint:mnd
	}

	if *help {
		fs.Usage()
		return 1
	}

	if *decode {
		return decodePulses(stdin, stdout, stderr, *rxRepeats, *raw)
	}

	var m Message
	switch fs.NArg() {
	case 0:
		var a, err = ParseAddress(*address)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return 1
		}
		m = NewMessage(*command, *param, *room, *device, a)
	case 1:
		var err error
		if m, err = ParseMessage(fs.Arg(0)); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return 1
		}
	default:
		fs.Usage()
		return 1
	}

	var opts = TxOptions{
		Invert:  *invert,
		Repeats: *repeats,
		Period:  *period,
		Timing:  TxTiming{Low: *low, High: *high, Trail: *trail, Gap: *gap, GapMultiplier: *gapMultiplier},
		Logger:  NewLogger(stderr, "warn", ""),
	}

	var pulses, err = RenderPulses(m.Frame(), opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	if !*summary {
		var w = bufio.NewWriter(stdout)
		for _, p := range pulses {
			fmt.Fprintln(w, p.String())
		}
		w.Flush()

		return 0
	}

	var total time.Duration
	for _, p := range pulses {
		total += p.Duration
	}

	var rx = NewReceiver(RxOptions{Translate: true, Repeats: 0, Timeout: DefaultRxTimeout, Logger: opts.Logger})
	var decoded = replayFrames(rx, Edges(pulses))

	fmt.Fprintf(stdout, "message %s\n", m)
	fmt.Fprintf(stdout, "frame   %s\n", m.Frame())
	fmt.Fprintf(stdout, "pulses  %d over %s\n", len(pulses), total)
	fmt.Fprintf(stdout, "decoded %d of %d\n", countEqual(decoded, m), *repeats)

	return 0
}

func countEqual(frames []Frame, m Message) int {
	var n int
	for _, f := range frames {
		if d, err := DecodeFrame(f); err == nil && d == m {
			n++
		}
	}

	return n
}

// replayFrames runs edges through rx and collects every frame it
// assembles, confirmed or not.
func replayFrames(rx *Receiver, edges []Edge) []Frame {
	var out []Frame
	rx.tap = func(f Frame) { out = append(out, f) }
	defer func() { rx.tap = nil }()

	var clock = NewEdgeClock(time.Unix(0, 0))
	rx.now = clock.Now
	Replay(rx, clock, edges)

	return out
}

// replayAll runs edges through rx and collects every message it reports.
func replayAll(rx *Receiver, edges []Edge) [][MessageLen]byte {
	var clock = NewEdgeClock(time.Unix(0, 0))
	rx.now = clock.Now

	var out [][MessageLen]byte
	for _, e := range edges {
		Replay(rx, clock, []Edge{e})
		if rx.HasMessage() {
			var buf [MessageLen]byte
			if rx.GetMessage(buf[:], MessageLen) == nil {
				out = append(out, buf)
			}
		}
	}

	return out
}

func parsePulses(r io.Reader) ([]Pulse, error) {
	var pulses []Pulse
	var sc = bufio.NewScanner(r)
	var n int
	for sc.Scan() {
		n++
		var line = strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var f = strings.Fields(line)
		if len(f) != 2 {
			return nil, fmt.Errorf("line %d: want \"level microseconds\"", n)
		}

		var us, err = strconv.ParseInt(f[1], 10, 64)
		if err != nil || us < 0 || (f[0] != "0" && f[0] != "1") {
			return nil, fmt.Errorf("line %d: want \"level microseconds\"", n)
		}

		pulses = append(pulses, Pulse{Level: f[0] == "1", Duration: time.Duration(us) * time.Microsecond})
	}

	return pulses, sc.Err()
}

func decodePulses(stdin io.Reader, stdout, stderr io.Writer, repeats uint8, raw bool) int {
	var pulses, err = parsePulses(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	var logger = NewLogger(stderr, "warn", "")
	var rx = NewReceiver(RxOptions{Translate: !raw, Repeats: repeats, Timeout: DefaultRxTimeout, Logger: logger})

	var msgs = replayAll(rx, Edges(pulses))
	for _, m := range msgs {
		fmt.Fprintf(stdout, "%s\n", FormatReceived(m, raw))
	}

	var c = rx.Counters()
	fmt.Fprintf(stderr, "%d frames, %d confirmed, %d timing resets, %d bad symbols\n",
		c.Frames, c.Confirmed, c.TimingResets, c.BadSymbols)

	return 0
}
