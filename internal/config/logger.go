package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
	With().Timestamp().Str("app", "backdrops").Logger()

// ConfigureLogger applies log_level to the process logger. Unknown levels fall back to info.
func ConfigureLogger(levelName string) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelName)))
	if err != nil || level == zerolog.NoLevel {
		if levelName != "" {
			logger.Warn().Str("invalid_level", levelName).Msg("Unknown log level, keeping info")
		}
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)
	logger.Debug().Stringer("level", level).Msg("Log level applied")
}

// GetLogger returns the process logger.
func GetLogger() zerolog.Logger {
	return logger
}
