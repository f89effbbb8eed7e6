package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/cache"
	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// DefaultIdentifierResolver searches TMDB and caches positive answers.
// Failures are never cached.
type DefaultIdentifierResolver struct {
	searcher client.Searcher
	cache    cache.Cache
}

// NewIdentifierResolver creates a resolver; a nil cache disables caching
func NewIdentifierResolver(searcher client.Searcher, c cache.Cache) *DefaultIdentifierResolver {
	return &DefaultIdentifierResolver{searcher: searcher, cache: c}
}

// Resolve returns the TMDB id of the first search match for title
func (r *DefaultIdentifierResolver) Resolve(ctx context.Context, title string, mediaType models.MediaType) (string, error) {
	logger := config.GetLogger()
	key := models.TitleEntry{Title: title, MediaType: mediaType}.Key()

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok && len(cached) > 0 {
			logger.Debug().Str("title", title).Str("tmdbId", string(cached)).Msg("Identifier served from cache")
			return string(cached), nil
		}
	}

	id, err := r.searcher.Search(ctx, title, mediaType)
	if err != nil {
		var resErr *apperrors.ErrIdentifierResolution
		if !errors.As(err, &resErr) {
			resErr = &apperrors.ErrIdentifierResolution{Title: title, Reason: apperrors.ReasonTransport, Err: err}
		}

		event := logger.Warn().Str("title", title).Str("mediaType", string(mediaType))
		switch resErr.Reason {
		case apperrors.ReasonMissingAPIKey:
			event.Msg("Cannot resolve identifier: TMDB API key is not configured")
		case apperrors.ReasonNoResults:
			event.Msg("Cannot resolve identifier: TMDB search returned no results")
		case apperrors.ReasonMalformedResponse:
			event.Err(resErr.Err).Msg("Cannot resolve identifier: TMDB answered with an unexpected body")
		default:
			event.Err(resErr.Err).Msg("Cannot resolve identifier: TMDB search request failed")
		}
		return "", resErr
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, []byte(id))
	}
	return id, nil
}

// cacheLogger forwards backend errors of the identifier cache to zerolog
type cacheLogger struct{}

func (cacheLogger) Error(msg string, err error) {
	logger := config.GetLogger()
	logger.Error().Err(err).Msg(msg)
}

// NewIdentifierCache builds the configured identifier cache backend
func NewIdentifierCache(cfg *config.Config) (cache.Cache, error) {
	c, err := cache.New(cfg.Cache.Provider, cache.Options{
		Size:          cfg.Cache.Size,
		TTL:           cfg.CacheTTL(),
		Logger:        cacheLogger{},
		RedisAddress:  cfg.Cache.Redis.Address,
		RedisPassword: cfg.Cache.Redis.Password,
		RedisDB:       cfg.Cache.Redis.DB,
		SQLitePath:    cfg.Cache.SQLitePath,
		Group:         "identifiers",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s identifier cache: %w", cfg.Cache.Provider, err)
	}
	return c, nil
}
