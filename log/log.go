// Package log provides the shared btclog backend for every package in this
// module, wired the same way lnd's lnd.go sets up ltndLog/rpcsLog/srvrLog:
// one named sub-logger per subsystem, all routed through a single backend
// that can be redirected or leveled at runtime.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Backend is the shared logging backend every subsystem logger is derived
// from. It starts out writing to stdout; callers (typically config loading)
// redirect it to a rotating file with InitLogRotator.
var Backend = btclog.NewBackend(os.Stdout)

// subsystems tracks every logger handed out via NewSubLogger so SetLevel can
// adjust all of them at once without the caller having to keep its own list.
var subsystems []btclog.Logger

// NewSubLogger returns a named logger for the given subsystem, e.g.
// NewSubLogger("CLAM") for the claim builder, mirroring the per-package
// sub-loggers lnd registers for CHDB, HSWC, and so on.
func NewSubLogger(subsystem string) btclog.Logger {
	l := Backend.Logger(subsystem)
	l.SetLevel(btclog.LevelInfo)
	subsystems = append(subsystems, l)
	return l
}

// SetLevel sets the log level on every logger returned so far by
// NewSubLogger.
func SetLevel(level btclog.Level) {
	for _, l := range subsystems {
		l.SetLevel(level)
	}
}

// InitLogRotator redirects the shared backend to a size-rotated log file, in
// addition to the default stdout writer, the same way lnd's build.RotatingLogWriter
// wraps jrick/logrotate. maxSizeMB is the size in megabytes at which the
// active file is rotated; maxBackups is how many rotated files are
// retained.
func InitLogRotator(logFile string, maxSizeMB, maxBackups int) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("log: create log directory: %w", err)
	}

	r, err := rotator.New(logFile, int64(maxSizeMB)*1024, false, maxBackups)
	if err != nil {
		return fmt.Errorf("log: create log rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	Backend = btclog.NewBackend(io.MultiWriter(os.Stdout, pw))
	return nil
}
