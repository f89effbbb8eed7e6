package services

import (
	"context"

	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// BackdropAcquirer selects, filters and persists the backdrops of one title.
// It never returns an error: every failure is folded into the result outcome.
type BackdropAcquirer interface {
	Acquire(ctx context.Context, entry models.TitleEntry) models.DownloadResult
}
