package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the lwrfd daemon: a receiver and a
 *		transmitter shared over TCP, see server.go.
 *
 * Description:	lwrfd -c /etc/lwrf.yaml
 *
 *		Either side may be left out by not configuring its line.
 *		The service is announced with DNS-SD when server.dns_sd
 *		is set, and the same protocol can be offered on a pseudo
 *		terminal.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func DaemonMain(args []string, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("lwrfd", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var configFile = fs.StringP("config", "c", "/etc/lwrf.yaml", "Configuration file.")
	var listen = fs.String("listen", DefaultListen, "TCP address for clients.")
	var dnsSD = fs.Bool("dns-sd", false, "Announce the service with DNS-SD.")
	var dnsSDName = fs.String("dns-sd-name", "", "DNS-SD service name.")
	var usePty = fs.Bool("pty", false, "Also serve on a pseudo terminal.")
	var ptyLink = fs.String("pty-link", "", "Symlink to the pseudo terminal.")
	var messageLog = fs.StringP("message-log", "L", "", "CSV log file, may contain strftime codes.")
	var logLevel = fs.String("log-level", "", "debug, info, warn or error.")
	var version = fs.BoolP("version", "v", false, "Print the version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "lwrfd - LightwaveRF radio server.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: lwrfd [options]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2 //nolint:mnd
	}

	if *help || fs.NArg() != 0 {
		fs.Usage()
		return 1
	}

	if *version {
		fmt.Fprintln(stderr, VersionString("lwrfd"))
		return 0
	}

	var cfg, err = LoadConfig(*configFile, !fs.Changed("config"))
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 1
	}

	if fs.Changed("listen") {
		cfg.Server.Listen = *listen
	}
	if fs.Changed("dns-sd") {
		cfg.Server.DNSSD = *dnsSD
	}
	if fs.Changed("dns-sd-name") {
		cfg.Server.DNSSDName = *dnsSDName
	}
	if fs.Changed("pty") {
		cfg.Server.Pty = *usePty
	}
	if fs.Changed("pty-link") {
		cfg.Server.PtyLink = *ptyLink
	}
	if fs.Changed("message-log") {
		cfg.MessageLog = *messageLog
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	var logger = NewLogger(stderr, cfg.Log.Level, "lwrfd")
	cfg.Normalize(logger)

	var store, storeCloser, storeErr = OpenStore(cfg)
	if storeErr != nil {
		logger.Error("store", "err", storeErr)
		return 1
	}
	defer storeCloser.Close()

	var tx *Transmitter
	if cfg.Tx.Line >= 0 || cfg.Tx.Serial != "" {
		var closer io.Closer
		if tx, closer, err = OpenTransmitter(cfg, store, logger); err != nil {
			logger.Error("transmitter", "err", err)
			return 1
		}
		defer closer.Close()
	}

	var rx *Receiver
	if cfg.Rx.Line >= 0 {
		var closer io.Closer
		if rx, closer, err = OpenReceiver(cfg, store, logger); err != nil {
			logger.Error("receiver", "err", err)
			return 1
		}
		defer closer.Close()
	}

	if tx == nil && rx == nil {
		logger.Error("neither tx.line, tx.serial nor rx.line is configured")
		return 1
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv = NewServer(tx, rx, logger)

	var ln, listenErr = net.Listen("tcp", cfg.Server.Listen)
	if listenErr != nil {
		logger.Error("listen", "err", listenErr)
		return 1
	}

	if cfg.Server.DNSSD {
		var port = ln.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert
		if err := AnnounceService(ctx, cfg.Server.DNSSDName, port, logger); err != nil {
			logger.Warn("dns-sd", "err", err)
		}
	}

	if cfg.Server.Pty {
		var p, ptyErr = OpenPty(srv, cfg.Server.PtyLink)
		if ptyErr != nil {
			logger.Warn("pty", "err", ptyErr)
		} else {
			defer p.Close()
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

	if rx != nil {
		go forwardMessages(ctx, rx, srv, mlog)
	}

	if err := srv.Serve(ctx, ln); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Error("serve", "err", err)
		return 1
	}

	logger.Info("shutting down")

	return 0
}

// forwardMessages pushes every confirmed message to the clients and the log.
func forwardMessages(ctx context.Context, rx *Receiver, srv *Server, mlog *MessageLog) {
	for {
		var msg, raw, err = rx.ReadMessage(ctx)
		if err != nil {
			return
		}

		srv.logger.Debug("received", "message", FormatReceived(msg, raw))
		srv.Broadcast("RX " + FormatReceived(msg, raw))

		if mlog != nil {
			if err := mlog.Write(msg, raw, time.Now()); err != nil {
				srv.logger.Warn("message log", "err", err)
			}
		}
	}
}
