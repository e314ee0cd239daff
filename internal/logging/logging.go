// Package logging provides the structured logger used across the storefront
// service. It keeps the acme-shop call-site shape
//
//	logger.Info("Cart updated", logging.Fields{"user_id": id})
//
// on top of zap.
package logging

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields carries structured key/value pairs for a single log entry.
type Fields map[string]interface{}

// Logger is a named structured logger.
type Logger struct {
	zl *zap.Logger
}

// NewLogger creates a JSON logger named after the component. The level is
// taken from level ("debug", "info", "warn", "error"); unknown values mean info.
func NewLogger(name string, level ...string) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(level) > 0 {
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level[0]))
	}

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zl = zap.NewNop()
	}

	return &Logger{zl: zl.Named(name)}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// FromZap wraps an existing zap logger.
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

// Named returns a child logger for a sub-component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zl: l.zl.Named(name)}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{zl: l.zl.With(toZap(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.zl.Debug(msg, merge(fields)...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.zl.Info(msg, merge(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.zl.Warn(msg, merge(fields)...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.zl.Error(msg, merge(fields)...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.zl.Fatal(msg, merge(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func merge(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields[0]))
	for _, f := range fields {
		out = append(out, toZap(f)...)
	}
	return out
}

// toZap converts in key order so output is stable.
func toZap(fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
