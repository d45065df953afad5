package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the lwrfd TCP service using DNS-SD, so that
 *		home automation software on the local network can find
 *		the radio without being told an address and port.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNSSDService = "_lwrf._tcp"

// DefaultServiceName is "LightwaveRF on <short hostname>".
func DefaultServiceName() string {
	var hostname, err = os.Hostname()
	if err != nil {
		return "LightwaveRF"
	}

	// Some systems return an FQDN.
	hostname, _, _ = strings.Cut(hostname, ".")

	return "LightwaveRF on " + hostname
}

// AnnounceService advertises port under name until ctx is done.
// An empty name means DefaultServiceName.
func AnnounceService(ctx context.Context, name string, port int, logger *log.Logger) error {
	if name == "" {
		name = DefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNSSDService,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("dns-sd service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("dns-sd responder: %w", rpErr)
	}

	if _, err := rp.Add(sv); err != nil {
		return fmt.Errorf("dns-sd add service: %w", err)
	}

	logger.Info("dns-sd announcing", "name", name, "type", DNSSDService, "port", port)

	go func() {
		if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Error("dns-sd responder", "err", err)
		}
	}()

	return nil
}
