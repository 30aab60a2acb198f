package wsframe

import (
	"log/slog"
	"slices"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// The codec logs individual frames at Debug level and size-limit rejections
// at Warn level; Conn and Server log their lifecycle at Info level.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// withAttrs returns a logger that adds attrs to every record.
func withAttrs(l Logger, attrs ...any) Logger {
	if sl, ok := l.(*slog.Logger); ok {
		return sl.With(attrs...)
	}
	return &attrLogger{Logger: l, attrs: attrs}
}

// attrLogger prefixes the arguments of a Logger that has no With method.
type attrLogger struct {
	Logger
	attrs []any
}

func (l *attrLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.join(args)...) }
func (l *attrLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.join(args)...) }
func (l *attrLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.join(args)...) }
func (l *attrLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.join(args)...) }

func (l *attrLogger) join(args []any) []any {
	return append(slices.Clip(l.attrs), args...)
}
