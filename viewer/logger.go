package viewer

import (
	"log/slog"

	"github.com/rjkroege/pageview/internal/logging"
)

// SetLogger configures the logger for the viewer and the packages it
// drives. By default nothing is logged. Pass nil to restore that.
//
// Levels used:
//   - [slog.LevelDebug]: task scheduling and slot state changes
//   - [slog.LevelInfo]: document open and relayout
//   - [slog.LevelWarn]: render, size and search failures
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logging.Logger()
}
