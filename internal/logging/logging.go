// Package logging builds the harness logger: console output to stderr
// plus a rotating file capturing subprocess detail.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger writing warnings and above to stderr and, when
// path is non-empty, everything from level up to a size-rotated file.
func New(path string, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		MessageKey:     "M",
		NameKey:        "N",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	consoleLevel := zapcore.WarnLevel
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), consoleLevel),
	}
	if path != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			LocalTime:  true,
		})
		cores = append(cores, zapcore.NewCore(encoder, file, level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

// Nop returns a disabled logger for tests.
func Nop() *zap.Logger { return zap.NewNop() }
