// Package logging builds the zap loggers used across the coordinator, data
// node, and chat node processes. Every collaborator that needs to log is
// handed a named *zap.Logger explicitly at construction time; there is no
// package-level logger anywhere in this module.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for one process role ("coordinator", "datanode",
// "chatnode"). debug controls whether debug-level records (per-message chat
// traffic, decision-poll wake-ups) are emitted.
func New(role string, debug bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stdout), level)

	return zap.New(core, zap.AddCaller()).WithOptions(zap.Fields(zap.String("role", role))), nil
}

// Noop returns a logger that discards everything, for use in tests that
// don't care about log output.
func Noop() *zap.Logger {
	return zap.NewNop()
}
