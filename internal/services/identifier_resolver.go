package services

import (
	"context"

	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// IdentifierResolver maps a title to its canonical (TMDB) identifier.
// A non-nil error means the title could not be resolved and should be retried next run.
type IdentifierResolver interface {
	Resolve(ctx context.Context, title string, mediaType models.MediaType) (string, error)
}
