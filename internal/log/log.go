// Package log provides the process-wide logger of the dxlmotion command.
// It wraps zap with defaults that stay out of the way of the terminal UI.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// Init initializes the global logger with the specified level, writing to
// path (stderr when empty). Valid levels: "debug", "info", "warn", "error".
// Only the first call has an effect.
func Init(level, path string) error {
	var err error
	once.Do(func() {
		lvl := zapcore.InfoLevel
		if uerr := lvl.UnmarshalText([]byte(level)); uerr != nil {
			lvl = zapcore.InfoLevel
		}

		// Use JSON in production, console lines in development
		cfg := zap.NewDevelopmentConfig()
		if os.Getenv("GO_ENV") == "production" {
			cfg = zap.NewProductionConfig()
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.DisableStacktrace = true
		if path != "" {
			cfg.OutputPaths = []string{path}
			cfg.ErrorOutputPaths = []string{path}
		}

		var l *zap.Logger
		l, err = cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l.Sugar()
	})
	return err
}

// L returns the global logger instance.
func L() *zap.SugaredLogger {
	if logger == nil {
		_ = Init("info", "")
	}
	return logger
}

// Named returns a child logger for one component.
func Named(name string) *zap.SugaredLogger {
	return L().Named(name)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L().Sync()
}
