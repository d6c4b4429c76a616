package log

import "context"

// loggerKey is the context key a Logger is stored under.
type loggerKey struct{}

// ToContext returns a copy of ctx carrying logger.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the Logger stored in ctx, or nil if none was set.
func FromContext(ctx context.Context) Logger {
	logger, _ := ctx.Value(loggerKey{}).(Logger)
	return logger
}
