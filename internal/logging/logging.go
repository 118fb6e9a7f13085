// Package logging builds the diagnostic logger. The terminal belongs to the
// TUI, so log output goes to a file rather than stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/diogo/medimate/internal/config"
)

// New returns a JSON logger writing to cfg.LogFile.
// An empty LogFile disables logging. Verbose forces debug level.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.LogFile == "" {
		return zap.NewNop(), nil
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{cfg.LogFile}
	zc.ErrorOutputPaths = []string{cfg.LogFile}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("medimate"), nil
}

// ParseLevel maps a config log level to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Sync flushes logger, ignoring the harmless errors some platforms return
// for unsynced files.
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
