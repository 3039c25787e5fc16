// Package logging configures zerolog for the relay and carries loggers
// through request contexts.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bnema/imagerelay/internal/config"
)

// Setup builds the root logger from cfg, installs it as the global and
// context-default logger, and returns it.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, error) {
	return setup(cfg, os.Stderr)
}

func setup(cfg config.LoggingConfig, console io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = console
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: console}
	}

	if cfg.File != "" {
		// Create logs directory with secure permissions (0700 - owner only)
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(out, fileWriter)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()

	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	if err != nil {
		logger.Warn().Str("invalid_level", cfg.Level).Msg("invalid log level, using info")
	}
	logger.Debug().
		Str("level", level.String()).
		Str("format", cfg.Format).
		Str("file", cfg.File).
		Msg("logging initialized")

	return logger, nil
}
