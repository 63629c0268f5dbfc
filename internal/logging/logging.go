// Package logging builds the zap loggers shared across Cortex's components,
// the way nerd's root command builds one production logger and hands out
// named children per subsystem.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. verbose lowers the level to debug; the encoding
// stays JSON so JSONL-style log aggregation can consume it directly.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Component returns a child logger tagged with its owning component, so log
// lines from the gate, self-heal supervisor, trust gate, etc. are
// distinguishable without per-call fields.
func Component(base *zap.Logger, name string) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.With(zap.String("component", name))
}
