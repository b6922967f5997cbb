// Package logger builds the charmbracelet/log loggers used across revisa.
// Everything writes to stderr: stdout belongs to the IPC protocol.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a component logger that follows the global log level.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// Setup configures the package level logger. Debug turns on timestamps and
// caller reporting, otherwise only warnings and errors are shown.
func Setup(w io.Writer, debug bool) {
	if w == nil {
		w = os.Stderr
	}
	log.SetOutput(w)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		log.SetReportCaller(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
	log.SetReportCaller(false)
}
