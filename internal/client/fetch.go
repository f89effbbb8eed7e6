package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
)

// maxImageBytes caps a single backdrop download; original TMDB backdrops stay well below it
const maxImageBytes = 50 << 20

// maxListBytes caps a remote title list body
const maxListBytes = 10 << 20

// Fetcher downloads image bytes and remote list bodies with the shared client
type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	return &Fetcher{httpClient: httpClient}
}

// FetchBytes downloads a single image
func (f *Fetcher) FetchBytes(ctx context.Context, imageURL string) ([]byte, error) {
	body, _, err := f.get(ctx, "image", imageURL, maxImageBytes)
	return body, err
}

// FetchList downloads a remote title list and reports its content type
func (f *Fetcher) FetchList(ctx context.Context, ref string) ([]byte, string, error) {
	logger := config.GetLogger()
	logger.Debug().Str("url", ref).Msg("Fetching remote title list")
	return f.get(ctx, "list", ref, maxListBytes)
}

func (f *Fetcher) get(ctx context.Context, source, target string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &apperrors.ErrProviderTransport{Provider: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperrors.NewStatusError(source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", &apperrors.ErrProviderTransport{Provider: source, Err: err}
	}
	if int64(len(body)) > limit {
		return nil, "", fmt.Errorf("%s body of %s exceeds %d bytes", source, target, limit)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("%s body of %s is empty", source, target)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
