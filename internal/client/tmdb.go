package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// TMDBClient is the primary provider: it resolves identifiers, lists backdrops
// and maps TMDB show ids to TVDB ids for Fanart.tv.
type TMDBClient struct {
	httpClient   *http.Client
	baseURL      string
	imageBaseURL string
	apiKey       string
}

// NewTMDBClient creates a TMDB v3 client authenticated with an api_key query parameter
func NewTMDBClient(cfg config.ProviderConfig, httpClient *http.Client) *TMDBClient {
	return &TMDBClient{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:       cfg.APIKey,
	}
}

func (c *TMDBClient) Name() models.Provider {
	return models.ProviderTMDB
}

// tmdbPath maps the media type onto the TMDB path segment
func tmdbPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeShow {
		return "tv"
	}
	return "movie"
}

func (c *TMDBClient) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	return c.baseURL + path + "?" + query.Encode()
}

type tmdbSearchResponse struct {
	Results []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		Name  string `json:"name"`
	} `json:"results"`
}

// Search returns the id of the first search result for title.
// Errors are *apperrors.ErrIdentifierResolution carrying the failure reason.
func (c *TMDBClient) Search(ctx context.Context, title string, mediaType models.MediaType) (string, error) {
	logger := config.GetLogger()

	if c.apiKey == "" {
		return "", &apperrors.ErrIdentifierResolution{
			Title:  title,
			Reason: apperrors.ReasonMissingAPIKey,
			Err:    apperrors.NewMissingAPIKeyError(models.ProviderTMDB.String()),
		}
	}

	endpoint := c.endpoint("/search/"+tmdbPath(mediaType), url.Values{"query": {title}})

	var result tmdbSearchResponse
	if err := getJSON(ctx, c.httpClient, models.ProviderTMDB, endpoint, nil, &result); err != nil {
		reason := apperrors.ReasonTransport
		if errors.Is(err, &ErrMalformedResponse{}) {
			reason = apperrors.ReasonMalformedResponse
		}
		return "", &apperrors.ErrIdentifierResolution{Title: title, Reason: reason, Err: err}
	}

	if len(result.Results) == 0 {
		return "", &apperrors.ErrIdentifierResolution{Title: title, Reason: apperrors.ReasonNoResults}
	}
	first := result.Results[0]
	if first.ID <= 0 {
		return "", &apperrors.ErrIdentifierResolution{
			Title:  title,
			Reason: apperrors.ReasonMalformedResponse,
			Err:    errors.New("first result has no id"),
		}
	}

	id := strconv.FormatInt(first.ID, 10)
	logger.Debug().
		Str("title", title).
		Str("mediaType", string(mediaType)).
		Str("tmdbId", id).
		Int("results", len(result.Results)).
		Msg("Resolved title on TMDB")
	return id, nil
}

type tmdbImagesResponse struct {
	Backdrops []struct {
		FilePath string  `json:"file_path"`
		Language *string `json:"iso_639_1"`
		Width    int     `json:"width"`
	} `json:"backdrops"`
}

// ListBackdrops returns every backdrop TMDB holds for the title, in provider order
func (c *TMDBClient) ListBackdrops(ctx context.Context, mediaType models.MediaType, externalID string) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewMissingAPIKeyError(models.ProviderTMDB.String())
	}

	endpoint := c.endpoint(fmt.Sprintf("/%s/%s/images", tmdbPath(mediaType), url.PathEscape(externalID)), nil)

	var result tmdbImagesResponse
	if err := getJSON(ctx, c.httpClient, models.ProviderTMDB, endpoint, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list TMDB backdrops for %s: %w", externalID, err)
	}

	candidates := make([]models.Candidate, 0, len(result.Backdrops))
	for _, b := range result.Backdrops {
		if b.FilePath == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			SourceURL: c.imageBaseURL + b.FilePath,
			Language:  b.Language,
		})
	}
	return candidates, nil
}

type tmdbExternalIDs struct {
	TVDBID *int64 `json:"tvdb_id"`
}

// TVDBID maps a TMDB show id to its TVDB id
func (c *TMDBClient) TVDBID(ctx context.Context, tmdbID string) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.NewMissingAPIKeyError(models.ProviderTMDB.String())
	}

	endpoint := c.endpoint(fmt.Sprintf("/tv/%s/external_ids", url.PathEscape(tmdbID)), nil)

	var result tmdbExternalIDs
	if err := getJSON(ctx, c.httpClient, models.ProviderTMDB, endpoint, nil, &result); err != nil {
		return "", fmt.Errorf("failed to map TMDB show %s to TVDB: %w", tmdbID, err)
	}
	if result.TVDBID == nil || *result.TVDBID <= 0 {
		return "", apperrors.NewNotFoundError("tvdb id for tmdb show", tmdbID)
	}
	return strconv.FormatInt(*result.TVDBID, 10), nil
}
