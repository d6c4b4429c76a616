package log

import (
	"fmt"
	"log/slog"
	"os"
)

// slogLogger adapts an *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

var _ Logger = (*slogLogger)(nil)

// New builds a JSON-handler Logger writing to os.Stdout at the given level
// ("debug", "info", "warn", "error"; an empty string means info, and any
// other value is an error).
func New(level string) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return &slogLogger{l: slog.New(handler)}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log: unknown level %q", level)
	}
}

func (s *slogLogger) Debug(msg string, keysAndValues ...any) { s.l.Debug(msg, keysAndValues...) }
func (s *slogLogger) Info(msg string, keysAndValues ...any)  { s.l.Info(msg, keysAndValues...) }
func (s *slogLogger) Warn(msg string, keysAndValues ...any)  { s.l.Warn(msg, keysAndValues...) }
func (s *slogLogger) Error(msg string, keysAndValues ...any) { s.l.Error(msg, keysAndValues...) }

// Noop is a Logger that discards everything, used as a safe default and in
// tests that don't care about log output.
type Noop struct{}

var _ Logger = Noop{}

func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
