package blockdev

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with blockdev-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Layering components default to this so the library stays silent.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithAddr adds a block address field to the logger.
func (l *Logger) WithAddr(addr uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("addr", addr),
	}
}

// WithDevice adds a device name field to the logger.
func (l *Logger) WithDevice(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", name),
	}
}

// LogWriteBack logs a write-back performed by cache eviction or teardown.
// Failures here have no return path to a caller, so this is the only place
// they surface.
func (l *Logger) LogWriteBack(addr uint64, err error) {
	if err != nil {
		l.Warn("write-back failed",
			"addr", addr,
			"error", err,
		)
	} else {
		l.Debug("write-back completed",
			"addr", addr,
		)
	}
}

// LogMaterialize logs a copy-on-write materialization.
func (l *Logger) LogMaterialize(addr uint64, err error) {
	if err != nil {
		l.Debug("materialize failed",
			"addr", addr,
			"error", err,
		)
	} else {
		l.Debug("materialize completed",
			"addr", addr,
		)
	}
}
