package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Offer the server's line protocol on a pseudo terminal,
 *		for software that only knows how to talk to a serial
 *		device.
 *
 * Description:	The slave side is held open by us as well, otherwise
 *		reads on the master fail as soon as no application has
 *		the terminal open.  A symlink with a fixed name can be
 *		made because the slave name changes from run to run.
 *
 *		The terminal is put in raw mode.  With the default echo
 *		every reply would come straight back as a command.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/creack/pty"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

type PtyPort struct {
	master *os.File
	slave  *os.File
	link   string
}

// OpenPty creates a pseudo terminal served by s.  link, if not empty, is
// replaced by a symlink to the slave device.
func OpenPty(s *Server, link string) (*PtyPort, error) {
	var master, slave, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("could not create pseudo terminal: %w", err)
	}

	var p = &PtyPort{master: master, slave: slave}

	var attr unix.Termios
	if err := termios.Tcgetattr(slave.Fd(), &attr); err != nil {
		p.Close()
		return nil, fmt.Errorf("pseudo terminal attributes: %w", err)
	}
	termios.Cfmakeraw(&attr)
	if err := termios.Tcsetattr(slave.Fd(), termios.TCSANOW, &attr); err != nil {
		p.Close()
		return nil, fmt.Errorf("pseudo terminal raw mode: %w", err)
	}

	if link != "" {
		if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.Close()
			return nil, fmt.Errorf("remove %s: %w", link, err)
		}
		if err := os.Symlink(slave.Name(), link); err != nil {
			p.Close()
			return nil, fmt.Errorf("symlink %s: %w", link, err)
		}
		p.link = link
	}

	s.logger.Info("virtual serial port available", "device", slave.Name(), "link", link)

	go s.ServeConn(master)

	return p, nil
}

// Name is the slave device, e.g. /dev/pts/3.
func (p *PtyPort) Name() string {
	return p.slave.Name()
}

func (p *PtyPort) Close() error {
	if p.link != "" {
		os.Remove(p.link)
	}

	var err = p.master.Close()
	if errors.Is(err, os.ErrClosed) {
		// Already closed by the server when the terminal hung up.
		err = nil
	}

	return errors.Join(p.slave.Close(), err)
}
