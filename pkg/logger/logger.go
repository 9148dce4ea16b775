// Package logger builds the zap loggers used across visiongate.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a logger writing to stdout. Console output is colored for
// humans; json switches to a structured encoder for log shippers.
func NewLogger(debug, json bool) *zap.Logger {
	return NewLeveledLogger(Level(debug), json)
}

// Level returns an adjustable level starting at Debug or Info.
func Level(debug bool) zap.AtomicLevel {
	if debug {
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

// NewLeveledLogger is NewLogger with a level the caller can change later.
func NewLeveledLogger(level zap.AtomicLevel, json bool) *zap.Logger {
	return NewLoggerTo(zapcore.Lock(os.Stdout), level, json)
}

// NewLoggerTo writes to out instead of stdout, for commands that own stdout.
func NewLoggerTo(out zapcore.WriteSyncer, level zap.AtomicLevel, json bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if json {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, out, level)

	return zap.New(core, zap.AddCaller())
}
