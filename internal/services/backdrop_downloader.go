package services

import (
	"context"

	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// BackdropDownloader writes the selected backdrops of an entry to the backdrop tree
type BackdropDownloader interface {
	// Persist saves candidates in order and returns every saved or reused path.
	// An error is returned only when no candidate could be persisted.
	Persist(ctx context.Context, entry models.TitleEntry, provider models.Provider, candidates []models.Candidate) ([]string, error)
}
