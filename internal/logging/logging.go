// Package logging builds the zap loggers used across the core.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Development switches to the human-readable console encoder.
	Development bool
	// Level is the minimum level ("debug", "info", "warn", "error");
	// empty means info.
	Level string
	// File, when set, also writes JSON logs to this path with rotation.
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// New builds a logger. With no file configured it behaves like the stock
// production/development presets.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	if cfg.File == "" {
		var zcfg zap.Config
		if cfg.Development {
			zcfg = zap.NewDevelopmentConfig()
		} else {
			zcfg = zap.NewProductionConfig()
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		return zcfg.Build()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    defaultInt(cfg.MaxSizeMB, 50),
		MaxAge:     defaultInt(cfg.MaxAgeDays, 28),
		MaxBackups: defaultInt(cfg.MaxBackups, 5),
		LocalTime:  true,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotating), level)

	consoleEnc := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level)

	return zap.New(zapcore.NewTee(consoleCore, fileCore)), nil
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
