// Package logger holds the process wide structured logger.
//
// Library code logs through Sugar. Until New is called Sugar discards
// everything, so packages and tests may log without any setup.
package logger

import (
	"go.uber.org/zap"
)

// Sugar is the shared sugared logger.
var Sugar = zap.NewNop().Sugar()

// New replaces Sugar with a production logger at the given level
// ("debug", "info", "warn", "error").
func New(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Sugar = l.Sugar()
	return nil
}

// WithServiceName returns a child logger tagged with the given component name.
func WithServiceName(name string) *zap.SugaredLogger {
	return Sugar.With("service", name)
}

// OnExit flushes buffered log entries.
func OnExit() {
	_ = Sugar.Sync()
}
