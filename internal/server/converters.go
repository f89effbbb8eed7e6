package server

import (
	"time"

	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/pipeline"
)

// maskedSecret replaces API keys in responses; sending it back keeps the stored key
const maskedSecret = "********"

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	State   models.RunState    `json:"state"`
	Running bool               `json:"running"`
	RunID   string             `json:"runId,omitempty"`
	NextRun *time.Time         `json:"nextRun,omitempty"`
	LastRun *models.RunSummary `json:"lastRun,omitempty"`
}

func toStatusResponse(status pipeline.Status, nextRun NextRunFunc) statusResponse {
	resp := statusResponse{
		State:   status.State,
		Running: status.Running,
		RunID:   status.RunID,
		LastRun: status.LastRun,
	}
	if next, ok := nextRun(); ok {
		resp.NextRun = &next
	}
	return resp
}

func secretsOf(cfg *config.Config) []*string {
	return []*string{
		&cfg.Providers.TMDB.APIKey,
		&cfg.Providers.TVDB.APIKey,
		&cfg.Providers.Fanart.APIKey,
		&cfg.Cache.Redis.Password,
		&cfg.Sentry.DSN,
	}
}

// maskSecrets returns a copy of cfg with every non-empty secret masked
func maskSecrets(cfg *config.Config) *config.Config {
	masked := cfg.Clone()
	for _, secret := range secretsOf(masked) {
		if *secret != "" {
			*secret = maskedSecret
		}
	}
	return masked
}

// restoreSecrets puts back the stored value of every secret left masked in next
func restoreSecrets(next, current *config.Config) {
	stored := secretsOf(current)
	for i, secret := range secretsOf(next) {
		if *secret == maskedSecret {
			*secret = *stored[i]
		}
	}
}
