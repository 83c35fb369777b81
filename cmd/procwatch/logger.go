package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/eliteGoblin/focusd/procwatch/internal/config"
)

// createLogger builds the operational logger. With a log file configured it
// writes rotated JSON; otherwise it writes console output to stderr.
func createLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	if cfg.File == "" {
		zc := zap.NewDevelopmentConfig()
		zc.Level = level
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zc.Build()
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := zapcore.AddSync(&lj.Logger{
		Filename:   cfg.File,
		MaxSize:    valOr(cfg.MaxSizeMB, config.DefaultMaxSizeMB),
		MaxBackups: valOr(cfg.MaxBackups, config.DefaultMaxBackups),
		MaxAge:     valOr(cfg.MaxAgeDays, config.DefaultMaxAgeDays),
		Compress:   cfg.Compress,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writer, level)
	return zap.New(core, zap.AddCaller()), nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
