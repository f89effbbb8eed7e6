package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// tvdbMapper maps a TMDB show id to the TVDB id Fanart.tv keys shows on
type tvdbMapper interface {
	TVDBID(ctx context.Context, tmdbID string) (string, error)
}

// FanartClient lists backgrounds from Fanart.tv v3. It is the secondary
// provider: coverage is partial and failures fall back to TMDB.
type FanartClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	ids        tvdbMapper
}

func NewFanartClient(cfg config.ProviderConfig, ids tvdbMapper, httpClient *http.Client) *FanartClient {
	return &FanartClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		ids:        ids,
	}
}

func (c *FanartClient) Name() models.Provider {
	return models.ProviderFanart
}

type fanartImage struct {
	ID   string  `json:"id"`
	URL  string  `json:"url"`
	Lang *string `json:"lang"`
}

type fanartResponse struct {
	MovieBackgrounds []fanartImage `json:"moviebackground"`
	ShowBackgrounds  []fanartImage `json:"showbackground"`
}

// ListBackdrops returns the movie or show backgrounds of the title
func (c *FanartClient) ListBackdrops(ctx context.Context, mediaType models.MediaType, externalID string) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewMissingAPIKeyError(models.ProviderFanart.String())
	}

	path := "/movies/" + url.PathEscape(externalID)
	if mediaType == models.MediaTypeShow {
		tvdbID, err := c.ids.TVDBID(ctx, externalID)
		if err != nil {
			return nil, fmt.Errorf("fanart needs a TVDB id: %w", err)
		}
		path = "/tv/" + url.PathEscape(tvdbID)
	}

	endpoint := c.baseURL + path + "?" + url.Values{"api_key": {c.apiKey}}.Encode()

	var result fanartResponse
	if err := getJSON(ctx, c.httpClient, models.ProviderFanart, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list Fanart.tv backgrounds for %s: %w", externalID, err)
	}

	images := result.MovieBackgrounds
	if mediaType == models.MediaTypeShow {
		images = result.ShowBackgrounds
	}

	candidates := make([]models.Candidate, 0, len(images))
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{SourceURL: img.URL, Language: img.Lang})
	}
	return candidates, nil
}
