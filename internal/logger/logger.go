// Package logger wraps zap with the small New/Init surface the binaries use.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process logger. Log is a no-op logger until Init succeeds.
type Logger struct {
	Log *zap.Logger

	format string
	output string
}

// Option tweaks the logger before Init builds it.
type Option func(*Logger)

// WithFormat selects "console" or "json" encoding. JSON is the default.
func WithFormat(format string) Option {
	return func(l *Logger) { l.format = strings.ToLower(format) }
}

// WithOutput sets the zap output path ("stderr", "stdout" or a file path).
func WithOutput(path string) Option {
	return func(l *Logger) { l.output = path }
}

// New returns a Logger whose Log field is a no-op logger.
func New(opts ...Option) *Logger {
	l := &Logger{Log: zap.NewNop(), format: "json", output: "stderr"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init builds the zap logger for the given level name ("debug", "Info", ...).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{l.output}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if l.format == "console" || l.format == "text" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
