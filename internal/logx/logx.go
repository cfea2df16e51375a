// Package logx builds the process logger.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/PhucNguyen204/lognorm/internal/config"
)

// New returns a logger for cfg. Output goes to the rotated cfg.File when set,
// otherwise to stderr.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.Rotate.MaxSizeMB,
			MaxBackups: cfg.Rotate.MaxBackups,
			MaxAge:     cfg.Rotate.MaxAgeDays,
			Compress:   cfg.Rotate.Compress,
		}
	}
	return NewWriter(cfg, w)
}

// NewWriter is New with an explicit destination.
func NewWriter(cfg config.LoggingConfig, w io.Writer) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(enc)
	case "console":
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, zap.AddCaller()).Named("lognorm"), nil
}
