package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Line oriented TCP interface to a receiver and transmitter,
 *		so that home automation software can use the radio
 *		without linking to this package.
 *
 * Description:	Every line from a client is one command and gets one
 *		reply line, "OK" with optional values or "ERR" with a
 *		reason.  Confirmed messages are pushed to every client,
 *		unprompted, as
 *
 *			RX <message>
 *
 *		where the message is 10 hex digits, or 20 when the
 *		receiver is not translating line codes.
 *
 *		Commands:
 *
 *		SEND cmd param room device	Send with the stored address.
 *		MSG <10 hex symbols>		Send a whole message.
 *		RAW <20 hex>			Send ten line code bytes as is.
 *		ADDR [<5 hex>]			Show or set the address.
 *		BUSY				1 while sending.
 *		PAIR LIST | CLEAR
 *		PAIR ADD|DEL addr room device
 *		PAIR MODE enforce baseonly	0 or 1 each.
 *		LEARN timeout			100 mS units.
 *		FILTER repeats timeout
 *		STATS [RESET]
 *		SINCE				mS since the last frame.
 *
 *		Numbers may be decimal or 0x hex.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// MaxNetClients is how many clients may be connected at once.
const MaxNetClients = 6

type netClient struct {
	id int
	mu sync.Mutex
	rw io.ReadWriteCloser
}

func (c *netClient) writeLine(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var _, err = io.WriteString(c.rw, s+"\n")

	return err
}

type Server struct {
	tx     *Transmitter // nil when receive only
	rx     *Receiver    // nil when transmit only
	logger *log.Logger

	mu      sync.Mutex
	clients map[int]*netClient
	nextID  int
}

func NewServer(tx *Transmitter, rx *Receiver, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	return &Server{tx: tx, rx: rx, logger: logger, clients: make(map[int]*netClient)}
}

// FormatReceived renders a message as sent to clients, without the RX prefix.
func FormatReceived(msg [MessageLen]byte, raw bool) string {
	if raw {
		return strings.ToUpper(hex.EncodeToString(msg[:]))
	}

	return Message(msg).String()
}

// Serve accepts clients on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.Info("ready to accept clients", "addr", ln.Addr().String())

	for {
		var conn, err = ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("accept failed", "err", err)
			continue
		}

		// The limit is checked and the slot taken in one step.
		var c = s.attach(conn, MaxNetClients)
		if c == nil {
			io.WriteString(conn, "ERR too many clients\n") //nolint:errcheck
			conn.Close()
			continue
		}

		s.logger.Info("client attached", "remote", conn.RemoteAddr().String())
		go s.serve(c)
	}
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// attach registers a client, or returns nil if limit (when not 0) is reached.
func (s *Server) attach(rw io.ReadWriteCloser, limit int) *netClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit > 0 && len(s.clients) >= limit {
		return nil
	}

	var c = &netClient{id: s.nextID, rw: rw}
	s.nextID++
	s.clients[c.id] = c

	return c
}

func (s *Server) detach(c *netClient) {
	s.mu.Lock()
	var _, present = s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()

	if present {
		c.rw.Close()
	}
}

// ServeConn runs the command loop for one client until it goes away.
func (s *Server) ServeConn(rw io.ReadWriteCloser) {
	s.serve(s.attach(rw, 0))
}

func (s *Server) serve(c *netClient) {
	defer s.detach(c)

	var sc = bufio.NewScanner(c.rw)
	for sc.Scan() {
		var line = strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if err := c.writeLine(s.HandleLine(line)); err != nil {
			return
		}
	}
}

// Broadcast sends line to every client.  Clients that cannot take it are dropped.
func (s *Server) Broadcast(line string) {
	s.mu.Lock()
	var all = make([]*netClient, 0, len(s.clients))
	for _, c := range s.clients {
		all = append(all, c)
	}
	s.mu.Unlock()

	for _, c := range all {
		if err := c.writeLine(line); err != nil {
			s.logger.Info("client detached", "client", c.id, "err", err)
			s.detach(c)
		}
	}
}

func parseByte(s string) (byte, error) {
	var v, err = strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}

	return byte(v), nil
}

func parseBytes(fields []string) ([]byte, error) {
	var out = make([]byte, len(fields))
	for i, f := range fields {
		var v, err = parseByte(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func reply(err error, values ...string) string {
	if err != nil {
		return "ERR " + err.Error()
	}
	if len(values) == 0 {
		return "OK"
	}

	return "OK " + strings.Join(values, " ")
}

var (
	errNoTx      = errors.New("no transmitter")
	errNoRx      = errors.New("no receiver")
	errUsage     = errors.New("wrong number of arguments")
	errUnknownOp = errors.New("unknown command")
)

// HandleLine runs one command and returns the reply line.
func (s *Server) HandleLine(line string) string {
	var f = strings.Fields(line)
	if len(f) == 0 {
		return reply(errUnknownOp)
	}

	var op, args = strings.ToUpper(f[0]), f[1:]

	switch op {
	case "SEND", "MSG", "RAW", "ADDR", "BUSY":
		if s.tx == nil {
			return reply(errNoTx)
		}
		return s.handleTx(op, args)
	case "PAIR", "LEARN", "FILTER", "STATS", "SINCE":
		if s.rx == nil {
			return reply(errNoRx)
		}
		return s.handleRx(op, args)
	default:
		return reply(fmt.Errorf("%w %q", errUnknownOp, f[0]))
	}
}

func (s *Server) handleTx(op string, args []string) string {
	switch op {
	case "SEND":
		if len(args) != 4 {
			return reply(errUsage)
		}
		var v, err = parseBytes(args)
		if err != nil {
			return reply(err)
		}
		return reply(s.tx.SendCommand(v[0], v[1], v[2], v[3]))

	case "MSG":
		if len(args) != 1 {
			return reply(errUsage)
		}
		var m, err = ParseMessage(args[0])
		if err != nil {
			return reply(err)
		}
		return reply(s.tx.Send(m))

	case "RAW":
		if len(args) != 1 {
			return reply(errUsage)
		}
		var b, err = hex.DecodeString(args[0])
		if err != nil || len(b) != MessageLen {
			return reply(fmt.Errorf("want %d hex bytes", MessageLen))
		}
		return reply(s.tx.SendFrame(Frame(b)))

	case "ADDR":
		switch len(args) {
		case 0:
			return reply(nil, FormatAddress(s.tx.Address()))
		case 1:
			var a, err = ParseAddress(args[0])
			if err != nil {
				return reply(err)
			}
			return reply(s.tx.SetAddress(a))
		default:
			return reply(errUsage)
		}

	default: // BUSY
		if s.tx.Busy() {
			return reply(nil, "1")
		}
		return reply(nil, "0")
	}
}

func (s *Server) handleRx(op string, args []string) string {
	switch op {
	case "PAIR":
		return s.handlePair(args)

	case "LEARN":
		if len(args) != 1 {
			return reply(errUsage)
		}
		var t, err = parseByte(args[0])
		if err != nil {
			return reply(err)
		}
		s.rx.StartLearn(t)
		return reply(nil)

	case "FILTER":
		if len(args) != 2 {
			return reply(errUsage)
		}
		var v, err = parseBytes(args)
		if err != nil {
			return reply(err)
		}
		s.rx.SetFilter(v[0], v[1])
		return reply(nil)

	case "STATS":
		if len(args) == 1 && strings.EqualFold(args[0], "RESET") {
			s.rx.Stats().Reset()
			return reply(nil)
		}
		var vals = s.rx.Stats().Snapshot().Values()
		var out = make([]string, len(vals))
		for i, v := range vals {
			out[i] = strconv.Itoa(int(v))
		}
		return reply(nil, out...)

	default: // SINCE
		return reply(nil, strconv.FormatInt(s.rx.TimeSinceLastPacket().Milliseconds(), 10))
	}
}

func (s *Server) handlePair(args []string) string {
	if len(args) == 0 {
		return reply(errUsage)
	}

	var p = s.rx.Pairing()

	switch strings.ToUpper(args[0]) {
	case "LIST":
		var out []string
		for _, e := range p.Pairs() {
			out = append(out, fmt.Sprintf("%s/%d/%d", FormatAddress(e.Address), e.Room, e.Device))
		}
		return reply(nil, out...)

	case "CLEAR":
		return reply(p.Clear())

	case "MODE":
		if len(args) != 3 {
			return reply(errUsage)
		}
		var v, err = parseBytes(args[1:])
		if err != nil {
			return reply(err)
		}
		p.SetMode(v[0] != 0, v[1] != 0)
		return reply(nil)

	case "ADD", "DEL":
		if len(args) != 4 {
			return reply(errUsage)
		}
		var a, err = ParseAddress(args[1])
		if err != nil {
			return reply(err)
		}
		var v, numErr = parseBytes(args[2:])
		if numErr != nil {
			return reply(numErr)
		}
		var e = PairEntry{Address: a, Room: v[0] & 0x0F, Device: v[1] & 0x0F, Command: CmdOn}
		if strings.EqualFold(args[0], "DEL") {
			return reply(p.RemovePair(e))
		}
		var n, addErr = p.AddPair(e)
		return reply(addErr, strconv.Itoa(n))

	default:
		return reply(fmt.Errorf("%w PAIR %q", errUnknownOp, args[0]))
	}
}
