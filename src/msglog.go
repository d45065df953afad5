package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Save received messages to a log file.
 *
 * Description:	One CSV line per confirmed message, with the fields
 *		split out for easy reading and later processing.
 *
 *		The file name is a strftime pattern, so
 *
 *			/var/log/lwrf/%Y-%m-%d.csv
 *
 *		starts a new file every day.  A plain name never changes.
 *		The file is kept open between messages and a header line
 *		is written whenever a file is started from empty.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

var msgLogHeader = []string{"utime", "isotime", "message", "command", "param", "room", "device", "address"}

type MessageLog struct {
	mu      sync.Mutex
	pattern *strftime.Strftime
	fname   string
	fp      *os.File
}

func NewMessageLog(pattern string) (*MessageLog, error) {
	var p, err = strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("message log name %q: %w", pattern, err)
	}

	return &MessageLog{pattern: p}, nil
}

func (l *MessageLog) openLocked(now time.Time) error {
	var fname = l.pattern.FormatString(now)
	if l.fp != nil && fname == l.fname {
		return nil
	}

	if l.fp != nil {
		l.fp.Close()
		l.fp = nil
	}

	if dir := filepath.Dir(fname); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
			return fmt.Errorf("message log directory: %w", err)
		}
	}

	var fp, err = os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec,mnd
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}

	var info, statErr = fp.Stat()
	if statErr == nil && info.Size() == 0 {
		var w = csv.NewWriter(fp)
		w.Write(msgLogHeader) //nolint:errcheck
		w.Flush()
	}

	l.fp = fp
	l.fname = fname

	return nil
}

// Write logs one message.  raw is true when msg holds line codes.
func (l *MessageLog) Write(msg [MessageLen]byte, raw bool, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.openLocked(now); err != nil {
		return err
	}

	var record = []string{strconv.FormatInt(now.Unix(), 10), now.UTC().Format(time.RFC3339)}

	var m = Message(msg)
	var ok = true
	if raw {
		var err error
		m, err = DecodeFrame(Frame(msg))
		ok = err == nil
		record = append(record, Frame(msg).String())
	} else {
		record = append(record, m.String())
	}

	if ok {
		record = append(record,
			strconv.Itoa(int(m.Command())),
			strconv.Itoa(int(m.Param())),
			strconv.Itoa(int(m.Room())),
			strconv.Itoa(int(m.Device())),
			FormatAddress(m.Address()))
	} else {
		record = append(record, "", "", "", "", "")
	}

	var w = csv.NewWriter(l.fp)
	w.Write(record) //nolint:errcheck
	w.Flush()

	return w.Error()
}

// Name is the file currently being written, empty before the first message.
func (l *MessageLog) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fname
}

func (l *MessageLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fp == nil {
		return nil
	}

	var err = l.fp.Close()
	l.fp = nil

	return err
}
