// Package logging builds the zap logger shared by the CLI and every
// engine component, mapping verbosity flags onto zap's level config.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity is the CLI's coarse logging dial.
type Verbosity int

const (
	VerbositySilent Verbosity = iota
	VerbosityNormal
	VerbosityVerbose
	VerbosityDebug
)

// New builds a production-encoder zap logger at the level verbosity maps
// to. VerbositySilent disables logging entirely via zap.NewNop.
func New(v Verbosity) (*zap.Logger, error) {
	if v == VerbositySilent {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch v {
	case VerbosityVerbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case VerbosityDebug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	return cfg.Build()
}
