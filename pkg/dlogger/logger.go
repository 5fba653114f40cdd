// Package dlogger exposes a simple zap logger, with log levels
package dlogger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"

	// EnvDebugTest enables debug logs in tests
	EnvDebugTest = "DEBUG_TEST"
)

// GetLogger returns a zap logger with the specified level
func GetLogger(logLevel string) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	zapConfig := zap.NewProductionConfig()
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(logLevel))
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.Sampling = nil
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("gitfs"), nil
}

// MustGetLogger returns a zap logger with the specified level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}

// TestLogger yields a zap logger for testing, essentially muting logs.
// Activate DEBUG logs when testing interactively by setting the DEBUG_TEST environment variable.
func TestLogger() *zap.Logger {
	if os.Getenv(EnvDebugTest) != "" {
		l, _ := zap.NewDevelopment()
		return l
	}
	return zap.NewNop()
}
