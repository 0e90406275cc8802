// Package logging builds the service logger: the ectologger facade the rest
// of the codebase logs through, backed by a zap core for output.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the configured logger and a flush function for shutdown.
// Pretty mode uses zap's development encoder for local runs; production
// emits JSON.
func New(level string, pretty bool) (ectologger.Logger, func()) {
	var zapConfig zap.Config
	if pretty {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	}

	zapLogger, err := zapConfig.Build(zap.WithCaller(false))
	if err != nil {
		zapLogger = zap.NewNop()
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }
}
