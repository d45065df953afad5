package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Transmit and receive lines on a Linux GPIO character
 *		device, e.g. /dev/gpiochip0 on a Raspberry Pi.
 *
 * Description:	The transmit data pin is an output line.  The
 *		receive data pin is an input line with edge detection
 *		on both edges; the kernel timestamps each edge so the
 *		pulse widths do not depend on how quickly the event
 *		goroutine gets scheduled.
 *
 *		List chips and lines with the gpioinfo command.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "lwrf"

// firstEdgeElapsed is reported for the first edge, which has no predecessor.
const firstEdgeElapsed = time.Hour

// gpioOutput is the part of *gpiocdev.Line used for output.
type gpioOutput interface {
	SetValue(value int) error
	Close() error
}

// GPIOLine is a transmit Line on a GPIO output.
type GPIOLine struct {
	out gpioOutput
}

// OpenGPIOLine requests offset on chip as an output, initially low.
func OpenGPIOLine(chip string, offset int) (*GPIOLine, error) {
	var l, err = gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(gpioConsumer))
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}

	return &GPIOLine{out: l}, nil
}

func (g *GPIOLine) SetLevel(high bool) error {
	var v = 0
	if high {
		v = 1
	}

	return g.out.SetValue(v)
}

func (g *GPIOLine) Close() error {
	return g.out.Close()
}

// GPIOEdgeSource delivers edges from a GPIO input.
type GPIOEdgeSource struct {
	chip      string
	offset    int
	pullUp    bool
	activeLow bool

	mu     sync.Mutex
	line   gpioOutput
	handle func(Edge)
	last   time.Duration
	primed bool
}

func NewGPIOEdgeSource(chip string, offset int, pullUp, activeLow bool) *GPIOEdgeSource {
	return &GPIOEdgeSource{chip: chip, offset: offset, pullUp: pullUp, activeLow: activeLow}
}

// Listen requests the line and starts calling handle from the event goroutine.
func (g *GPIOEdgeSource) Listen(handle func(Edge)) error {
	g.mu.Lock()
	g.handle = handle
	g.primed = false
	g.mu.Unlock()

	var opts = []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(gpioConsumer),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(g.event),
	}
	if g.pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	if g.activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	var l, err = gpiocdev.RequestLine(g.chip, g.offset, opts...)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", g.chip, g.offset, err)
	}

	g.mu.Lock()
	g.line = l
	g.mu.Unlock()

	return nil
}

func (g *GPIOEdgeSource) event(ev gpiocdev.LineEvent) {
	g.mu.Lock()
	var elapsed = firstEdgeElapsed
	if g.primed {
		elapsed = ev.Timestamp - g.last
	}
	g.last = ev.Timestamp
	g.primed = true
	var handle = g.handle
	g.mu.Unlock()

	if handle != nil {
		handle(Edge{Level: ev.Type == gpiocdev.LineEventRisingEdge, Elapsed: elapsed})
	}
}

func (g *GPIOEdgeSource) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.line == nil {
		return nil
	}

	var err = g.line.Close()
	g.line = nil

	return err
}
