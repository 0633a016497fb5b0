package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
	// TenantKey is the context key for tenant
	TenantKey ContextKey = "tenant"
	// UsernameKey is the context key for username
	UsernameKey ContextKey = "username"
	// DatasetIDKey is the context key for the dataset being processed
	DatasetIDKey ContextKey = "dataset_id"
)

var contextKeys = []ContextKey{RequestIDKey, TenantKey, UsernameKey, DatasetIDKey}

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, text
	Output io.Writer // defaults to stdout
}

// ParseLevel maps a level name to a slog level; unknown names are info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the process-wide slog logger and returns it.
func Init(cfg *Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// WithDataset tags ctx so that later log lines carry the dataset id.
func WithDataset(ctx context.Context, datasetID string) context.Context {
	return context.WithValue(ctx, DatasetIDKey, datasetID)
}

// WithContext returns a logger with context values extracted
func WithContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			logger = logger.With(string(key), v)
		}
	}

	return logger
}

// Info logs at info level with context
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Debug logs at debug level with context
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Warn logs at warn level with context
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
