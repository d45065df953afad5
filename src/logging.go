package lwrf

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger returns a timestamped logger at level, "info" if level is not recognised.
func NewLogger(w io.Writer, level string, prefix string) *log.Logger {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{ //nolint:exhaustruct
		Level:           lvl,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
