// Package discovery builds the set of titles a run works on, either from the
// folders of a local media library or from remote curated lists.
package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
	"github.com/Belphemur/BackdropFetcher/internal/parser"
	"github.com/rs/zerolog"
)

// Discoverer lists the titles of the configured sources.
// The result is de-duplicated by (title, media type) in discovery order.
// An error is returned only when every configured source failed or none is configured.
type Discoverer interface {
	Discover(ctx context.Context) ([]models.TitleEntry, error)
}

// source is one root folder or list for a media type
type source struct {
	mediaType models.MediaType
	ref       string
}

// New returns the discoverer for cfg.Discovery.Mode. runLog receives the
// human-readable lines of the run log.
func New(cfg *config.Config, lists client.ListFetcher, runLog zerolog.Logger) Discoverer {
	if strings.EqualFold(cfg.Discovery.Mode, config.DiscoveryModeRemote) {
		return &remoteDiscoverer{
			sources: []source{
				{mediaType: models.MediaTypeMovie, ref: cfg.Discovery.MoviesList},
				{mediaType: models.MediaTypeShow, ref: cfg.Discovery.ShowsList},
			},
			lists:  lists,
			parser: parser.NewListParser(cfg.Discovery.HTMLItemSelector),
			runLog: runLog,
		}
	}

	moviesRoot := cfg.Discovery.ResolvedMoviesRoot
	if moviesRoot == "" {
		moviesRoot = config.RewritePath(cfg.Discovery.MoviesRoot, cfg.PathRewrites)
	}
	showsRoot := cfg.Discovery.ResolvedShowsRoot
	if showsRoot == "" {
		showsRoot = config.RewritePath(cfg.Discovery.ShowsRoot, cfg.PathRewrites)
	}
	return &localDiscoverer{
		sources: []source{
			{mediaType: models.MediaTypeMovie, ref: moviesRoot},
			{mediaType: models.MediaTypeShow, ref: showsRoot},
		},
		runLog: runLog,
	}
}

// collect runs read for every configured source and applies the shared
// failure and de-duplication rules
func collect(ctx context.Context, sources []source, runLog zerolog.Logger, read func(context.Context, source) ([]models.TitleEntry, error)) ([]models.TitleEntry, error) {
	logger := config.GetLogger()

	var (
		entries    []models.TitleEntry
		configured int
		failures   []error
	)
	for _, src := range sources {
		if strings.TrimSpace(src.ref) == "" {
			continue
		}
		configured++

		found, err := read(ctx, src)
		if err != nil {
			discoveryErr := &apperrors.ErrDiscovery{Source: src.ref, Err: err}
			logger.Error().Err(discoveryErr).Str("mediaType", string(src.mediaType)).Msg("Title source failed")
			runLog.Error().Msgf("Discovery failed for %s source %s: %v", src.mediaType, src.ref, err)
			failures = append(failures, discoveryErr)
			continue
		}

		logger.Info().Str("source", src.ref).Str("mediaType", string(src.mediaType)).Int("titles", len(found)).Msg("Discovered titles")
		runLog.Info().Msgf("Discovered %d %s titles from %s", len(found), src.mediaType, src.ref)
		entries = append(entries, found...)
	}

	if configured == 0 {
		return nil, &apperrors.ErrDiscovery{Source: "configuration", Err: errors.New("no title source configured")}
	}
	if len(failures) == configured {
		return nil, &apperrors.ErrDiscovery{Source: "all sources", Err: errors.Join(failures...)}
	}

	return models.DedupEntries(entries), nil
}
