package ocdsmerge

import (
	"context"
	"log/slog"
	"time"
)

// MergeLogEvent describes one public merge operation.
type MergeLogEvent struct {
	Operation string
	Releases  int
	Duration  time.Duration
	Err       error
}

// Logger records merge events.
type Logger interface {
	LogMerge(MergeLogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(MergeLogEvent)

// LogMerge implements Logger.
func (f LoggerFunc) LogMerge(event MergeLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogMerge(MergeLogEvent) {}

// SlogLogger forwards merge events to logger. Failed operations log at error
// level.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return LoggerFunc(func(event MergeLogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("operation", event.Operation),
			slog.Int("releases", event.Releases),
			slog.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "ocdsmerge", attrs...)
	})
}

// SlogWarningHandler logs advisory warnings at warn level.
func SlogWarningHandler(logger *slog.Logger) WarningHandler {
	if logger == nil {
		return noopWarningHandler{}
	}
	return WarningHandlerFunc(func(w Warning) {
		logger.Warn(w.Message())
	})
}

// WithLogger attaches a merge logger.
func WithLogger(logger Logger) Option {
	return func(cfg *mergerConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
