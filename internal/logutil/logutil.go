package logutil

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// New builds the charm logger used as the slog handler.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "crosspost",
		ReportTimestamp: true,
		Level:           lvl,
	})
}

// Setup installs the logger as the process-wide slog default.
func Setup(level string) {
	slog.SetDefault(slog.New(New(os.Stderr, level)))
}
