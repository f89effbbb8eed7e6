package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

func lang(tag string) *string {
	return &tag
}

// candidates builds n candidates served from base, tagging them with tags in order
func candidates(base string, tags ...*string) []models.Candidate {
	result := make([]models.Candidate, 0, len(tags))
	for i, tag := range tags {
		result = append(result, models.Candidate{SourceURL: fmt.Sprintf("%s/img%d.jpg", base, i+1), Language: tag})
	}
	return result
}

type fakeProvider struct {
	name       models.Provider
	candidates []models.Candidate
	err        error
	delay      time.Duration
	calls      atomic.Int32
	lastID     atomic.Value
}

func (f *fakeProvider) Name() models.Provider {
	return f.name
}

func (f *fakeProvider) ListBackdrops(ctx context.Context, _ models.MediaType, externalID string) ([]models.Candidate, error) {
	f.calls.Add(1)
	f.lastID.Store(externalID)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.candidates, f.err
}

type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	return []byte("image:" + url), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSearcher struct {
	ids   map[string]string
	err   error
	calls atomic.Int32
}

func (f *fakeSearcher) Search(_ context.Context, title string, _ models.MediaType) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.ids[title]
	if !ok {
		return "", &apperrors.ErrIdentifierResolution{Title: title, Reason: apperrors.ReasonNoResults}
	}
	return id, nil
}

type fakeResolver struct {
	id  string
	err error
}

func (f fakeResolver) Resolve(context.Context, string, models.MediaType) (string, error) {
	return f.id, f.err
}
