// Package logging builds the diagnostic logger. Diagnostics go to stderr so
// stdout carries only the banner and the followed log lines.
package logging

import (
	"fmt"
	"io"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console zap logger writing to w at the given level.
func New(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core), nil
}

// StdLogger adapts logger into a *log.Logger for libraries that only speak
// the standard interface. Everything it receives is logged at debug level.
func StdLogger(logger *zap.Logger, name string) *log.Logger {
	std, err := zap.NewStdLogAt(logger.Named(name), zapcore.DebugLevel)
	if err != nil {
		// only reachable with an invalid level
		return zap.NewStdLog(logger.Named(name))
	}
	return std
}
