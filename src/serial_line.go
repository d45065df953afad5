package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Transmit data line on a serial port modem control pin.
 *
 * Description:	Many cheap 434 MHz transmitter boards only need one
 *		logic level input.  The RTS or DTR output of a USB serial
 *		adapter can drive one, the same way a PTT line is keyed.
 *
 *		RS-232 levels are inverted with respect to the logic
 *		level, so most setups want the invert option as well.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"

	"github.com/pkg/term"
)

// modemControl is the part of *term.Term used here.
type modemControl interface {
	SetRTS(v bool) error
	SetDTR(v bool) error
	Close() error
}

// SerialLine is a transmit Line on a serial port RTS or DTR pin.
type SerialLine struct {
	port modemControl
	dtr  bool
}

// OpenSerialLine opens device and drives pin, "RTS" or "DTR".
func OpenSerialLine(device string, pin string) (*SerialLine, error) {
	var dtr bool
	switch strings.ToUpper(pin) {
	case "", "RTS":
	case "DTR":
		dtr = true
	default:
		return nil, fmt.Errorf("serial line %q: want RTS or DTR", pin)
	}

	var port, err = term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}

	return &SerialLine{port: port, dtr: dtr}, nil
}

func (s *SerialLine) SetLevel(high bool) error {
	if s.dtr {
		return s.port.SetDTR(high)
	}

	return s.port.SetRTS(high)
}

func (s *SerialLine) Close() error {
	return s.port.Close()
}
