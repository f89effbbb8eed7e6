// Package client talks to the metadata providers (TMDB, TVDB, Fanart.tv) and
// fetches remote title lists and image bytes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/metrics"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// Searcher resolves a title to its TMDB identifier
type Searcher interface {
	Search(ctx context.Context, title string, mediaType models.MediaType) (string, error)
}

// BackdropProvider lists the backdrop images a provider holds for a title.
// externalID is always a TMDB identifier; providers keyed on another
// namespace map it themselves.
type BackdropProvider interface {
	Name() models.Provider
	ListBackdrops(ctx context.Context, mediaType models.MediaType, externalID string) ([]models.Candidate, error)
}

// ImageFetcher downloads the bytes of a single image
type ImageFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ListFetcher retrieves the body of a remote title list
type ListFetcher interface {
	FetchList(ctx context.Context, ref string) (body []byte, contentType string, err error)
}

// NewHTTPClient builds the client shared by every provider: cloned default
// transport, optional proxy, response decompression and the configured User-Agent.
func NewHTTPClient(cfg *config.Config) *http.Client {
	// Clone DefaultTransport to keep its pooling, HTTP/2 and dial timeouts
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	return &http.Client{
		Timeout:   cfg.Timeout(),
		Transport: newCompressionTransport(baseTransport, userAgent),
	}
}

// NewProviders creates one BackdropProvider per supported provider.
// TMDB doubles as the Searcher.
func NewProviders(cfg *config.Config, httpClient *http.Client) (map[models.Provider]BackdropProvider, *TMDBClient) {
	tmdb := NewTMDBClient(cfg.Providers.TMDB, httpClient)
	return map[models.Provider]BackdropProvider{
		models.ProviderTMDB:   tmdb,
		models.ProviderTVDB:   NewTVDBClient(cfg.Providers.TVDB, httpClient),
		models.ProviderFanart: NewFanartClient(cfg.Providers.Fanart, tmdb, httpClient),
	}, tmdb
}

// getJSON performs a GET and decodes a JSON body into out.
// Network errors and non-200 answers become *apperrors.ErrProviderTransport,
// undecodable bodies become *ErrMalformedResponse.
func getJSON(ctx context.Context, httpClient *http.Client, provider models.Provider, endpoint string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return doJSON(httpClient, provider, req, out)
}

func doJSON(httpClient *http.Client, provider models.Provider, req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(provider.String(), "error").Inc()
		return &apperrors.ErrProviderTransport{Provider: provider.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues(provider.String(), "error").Inc()
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return apperrors.NewStatusError(provider.String(), resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(provider.String(), "error").Inc()
		return &ErrMalformedResponse{Provider: provider.String(), Err: err}
	}

	metrics.ProviderRequestsTotal.WithLabelValues(provider.String(), "success").Inc()
	return nil
}
