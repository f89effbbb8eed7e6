package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/BackdropFetcher/internal/config"
)

// openRunLog opens the human-readable run log in append mode. When the file
// cannot be opened the process logger is used instead.
func openRunLog(path, runID string) (zerolog.Logger, io.Closer) {
	logger := config.GetLogger()
	if path == "" {
		return logger.With().Str("run", runID).Logger(), io.NopCloser(nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Cannot create run log directory, logging to stdout")
		return logger.With().Str("run", runID).Logger(), io.NopCloser(nil)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Cannot open run log, logging to stdout")
		return logger.With().Str("run", runID).Logger(), io.NopCloser(nil)
	}

	runLog := zerolog.New(zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: time.DateTime,
	}).With().Timestamp().Str("run", runID).Logger()
	return runLog, f
}
