// Package server exposes the run trigger, status, configuration and the
// backdrop tree over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/pipeline"
)

// Runner is the part of the orchestrator the API drives
type Runner interface {
	RunNow(ctx context.Context) (models.RunSummary, error)
	Status() pipeline.Status
	Config() *config.Config
	UpdateConfig(cfg *config.Config) error
}

// NextRunFunc reports the next scheduled run, if any
type NextRunFunc func() (time.Time, bool)

type server struct {
	runner  Runner
	nextRun NextRunFunc
	logger  zerolog.Logger
}

func newServer(r Runner, nextRun NextRunFunc) *server {
	if nextRun == nil {
		nextRun = func() (time.Time, bool) { return time.Time{}, false }
	}
	return &server{
		runner:  r,
		nextRun: nextRun,
		logger:  config.GetLogger(),
	}
}

// handleRun triggers a manual run and answers with its summary
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug().Msg("Manual run requested")

	// the run outlives a client that hangs up
	summary, err := s.runner.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, &apperrors.ErrRunInProgress{}):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, pipeline.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.logger.Error().Err(err).Str("runId", summary.RunID).Msg("Manual run failed")
		writeJSON(w, http.StatusInternalServerError, summary)
		return
	}

	s.logger.Debug().Str("runId", summary.RunID).Int("succeeded", summary.Succeeded).Msg("Manual run completed")
	writeJSON(w, http.StatusOK, summary)
}

// handleStatus reports the run state and the last summary
func (s *server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(s.runner.Status(), s.nextRun))
}

// handleGetConfig returns the configuration with API keys masked
func (s *server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, maskSecrets(s.runner.Config()))
}

// handlePutConfig merges the body over the current configuration and applies it
func (s *server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	current := s.runner.Config()
	next := current.Clone()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(next); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	restoreSecrets(next, current)

	if err := s.runner.UpdateConfig(next); err != nil {
		if errors.Is(err, &apperrors.ErrConfiguration{}) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error().Err(err).Msg("Failed to update configuration")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info().Msg("Configuration updated through the API")
	writeJSON(w, http.StatusOK, maskSecrets(s.runner.Config()))
}

// handleBackdrops serves the backdrop tree of the current configuration
func (s *server) handleBackdrops(w http.ResponseWriter, r *http.Request) {
	root := s.runner.Config().Output.BackdropDir
	http.StripPrefix("/backdrops/", http.FileServer(http.Dir(root))).ServeHTTP(w, r)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
