package lwrf

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenStore opens the configured store file, or a memory store when no
// path is configured.
func OpenStore(c Config) (Store, io.Closer, error) {
	if c.Store.Path == "" {
		return NewMemStore(DefaultStoreSize), closerFunc(func() error { return nil }), nil
	}

	var s, err = OpenFileStore(c.Store.Path, DefaultStoreSize)
	if err != nil {
		return nil, nil, err
	}

	return s, s, nil
}

/*------------------------------------------------------------------
 *
 * Name:	OpenTransmitter
 *
 * Purpose:	Build a transmitter on the configured hardware.
 *
 * Description:	A serial port, when configured, is used in preference
 *		to GPIO.  The stored address is loaded and then replaced
 *		by tx.address if that is set.
 *
 *------------------------------------------------------------------*/

func OpenTransmitter(c Config, store Store, logger *log.Logger) (*Transmitter, io.Closer, error) {
	var line Line
	var lineCloser io.Closer

	switch {
	case c.Tx.Serial != "":
		var s, err = OpenSerialLine(c.Tx.Serial, c.Tx.SerialLine)
		if err != nil {
			return nil, nil, err
		}
		line, lineCloser = s, s
	case c.Tx.Line >= 0:
		var g, err = OpenGPIOLine(c.Tx.Chip, c.Tx.Line)
		if err != nil {
			return nil, nil, err
		}
		line, lineCloser = g, g
	default:
		return nil, nil, errors.New("no transmit line configured, set tx.line or tx.serial")
	}

	var ticks, tickErr = NewTickSource()
	if tickErr != nil {
		lineCloser.Close()
		return nil, nil, tickErr
	}

	var tx, err = NewTransmitter(line, ticks, c.TxOptions(store, logger))
	if err != nil {
		lineCloser.Close()
		return nil, nil, err
	}

	if err := tx.LoadAddress(); err != nil {
		logger.Debug("no stored address", "err", err)
	}

	if c.Tx.Address != "" {
		var a, parseErr = ParseAddress(c.Tx.Address)
		if parseErr == nil {
			parseErr = tx.SetAddress(a)
		}
		if parseErr != nil {
			logger.Warn("address not set", "err", parseErr)
		}
	}

	var closer = closerFunc(func() error {
		var errs []error
		if t, ok := ticks.(io.Closer); ok {
			errs = append(errs, t.Close())
		}
		errs = append(errs, lineCloser.Close())

		return errors.Join(errs...)
	})

	return tx, closer, nil
}

// OpenReceiver builds a receiver listening on the configured GPIO line.
func OpenReceiver(c Config, store Store, logger *log.Logger) (*Receiver, io.Closer, error) {
	if c.Rx.Line < 0 {
		return nil, nil, errors.New("no receive line configured, set rx.line")
	}

	var rx = NewReceiver(c.RxOptions(store, logger))
	var src = NewGPIOEdgeSource(c.Rx.Chip, c.Rx.Line, c.Rx.PullUp, c.Rx.ActiveLow)
	if err := rx.Attach(src); err != nil {
		return nil, nil, fmt.Errorf("receive line: %w", err)
	}

	return rx, src, nil
}
