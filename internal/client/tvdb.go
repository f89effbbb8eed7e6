package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// TVDB artwork type ids for backgrounds
const (
	tvdbSeriesBackground = 3
	tvdbMovieBackground  = 15
)

// TVDBClient lists backgrounds from TheTVDB v4. The API key is exchanged for
// a bearer token on first use; the token is dropped when the API answers 401.
type TVDBClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu    sync.Mutex
	token string
}

func NewTVDBClient(cfg config.ProviderConfig, httpClient *http.Client) *TVDBClient {
	return &TVDBClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

func (c *TVDBClient) Name() models.Provider {
	return models.ProviderTVDB
}

type tvdbLoginResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

func (c *TVDBClient) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{"apikey": c.apiKey})
	if err != nil {
		return "", fmt.Errorf("failed to encode TVDB login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var result tvdbLoginResponse
	if err := doJSON(c.httpClient, models.ProviderTVDB, req, &result); err != nil {
		return "", fmt.Errorf("TVDB login failed: %w", err)
	}
	if result.Data.Token == "" {
		return "", &ErrMalformedResponse{Provider: models.ProviderTVDB.String(), Err: fmt.Errorf("login response has no token")}
	}

	c.token = result.Data.Token
	return c.token, nil
}

func (c *TVDBClient) get(ctx context.Context, path string, out any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	err = getJSON(ctx, c.httpClient, models.ProviderTVDB, c.baseURL+path, http.Header{
		"Authorization": {"Bearer " + token},
	}, out)

	var transportErr *apperrors.ErrProviderTransport
	if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	return err
}

type tvdbRemoteIDResponse struct {
	Data []struct {
		Series *struct {
			ID int64 `json:"id"`
		} `json:"series"`
		Movie *struct {
			ID int64 `json:"id"`
		} `json:"movie"`
	} `json:"data"`
}

// tvdbID maps a TMDB id onto the TVDB record of the same media type
func (c *TVDBClient) tvdbID(ctx context.Context, mediaType models.MediaType, tmdbID string) (string, error) {
	var result tvdbRemoteIDResponse
	if err := c.get(ctx, "/search/remoteid/"+url.PathEscape(tmdbID), &result); err != nil {
		return "", err
	}

	for _, match := range result.Data {
		if mediaType == models.MediaTypeShow && match.Series != nil && match.Series.ID > 0 {
			return strconv.FormatInt(match.Series.ID, 10), nil
		}
		if mediaType == models.MediaTypeMovie && match.Movie != nil && match.Movie.ID > 0 {
			return strconv.FormatInt(match.Movie.ID, 10), nil
		}
	}
	return "", apperrors.NewNotFoundError("tvdb "+string(mediaType)+" for tmdb id", tmdbID)
}

type tvdbArtwork struct {
	Image    string  `json:"image"`
	Language *string `json:"language"`
	Type     int     `json:"type"`
}

type tvdbArtworksResponse struct {
	Data struct {
		Artworks []tvdbArtwork `json:"artworks"`
	} `json:"data"`
}

// ListBackdrops returns the background artworks of the title
func (c *TVDBClient) ListBackdrops(ctx context.Context, mediaType models.MediaType, externalID string) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewMissingAPIKeyError(models.ProviderTVDB.String())
	}

	id, err := c.tvdbID(ctx, mediaType, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to map TMDB id %s to TVDB: %w", externalID, err)
	}

	var (
		artworks []tvdbArtwork
		want     int
	)
	if mediaType == models.MediaTypeShow {
		var result tvdbArtworksResponse
		path := fmt.Sprintf("/series/%s/artworks?type=%d", id, tvdbSeriesBackground)
		if err := c.get(ctx, path, &result); err != nil {
			return nil, fmt.Errorf("failed to list TVDB artworks for series %s: %w", id, err)
		}
		artworks, want = result.Data.Artworks, tvdbSeriesBackground
	} else {
		// Movie extended records embed their artworks
		var result tvdbArtworksResponse
		if err := c.get(ctx, fmt.Sprintf("/movies/%s/extended", id), &result); err != nil {
			return nil, fmt.Errorf("failed to list TVDB artworks for movie %s: %w", id, err)
		}
		artworks, want = result.Data.Artworks, tvdbMovieBackground
	}

	candidates := make([]models.Candidate, 0, len(artworks))
	for _, a := range artworks {
		if a.Type != want || a.Image == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{SourceURL: a.Image, Language: a.Language})
	}
	return candidates, nil
}
