package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger for the given environment. "production" gets JSON output
// at info level, "development" human readable output at info level, anything else is
// treated as a local run and logs at debug.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		return cfg.Build()
	default:
		return zap.NewDevelopment()
	}
}
