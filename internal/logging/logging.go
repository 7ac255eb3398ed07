// Package logging builds the zap logger for the loom binary.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dshills/loom/internal/config"
)

// New returns a logger writing console output to stderr and, when
// cfg.File is set, JSON lines to a rotated file. The returned func flushes
// and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LogConfig, console io.Writer) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(console)),
		level,
	)
	if cfg.File == "" {
		l := zap.New(consoleCore)
		return l, func() { _ = l.Sync() }, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)

	l := zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller())
	return l, func() {
		_ = l.Sync()
		_ = rotator.Close()
	}, nil
}
