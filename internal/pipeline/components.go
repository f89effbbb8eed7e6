package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/Belphemur/BackdropFetcher/internal/cache"
	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/discovery"
	"github.com/Belphemur/BackdropFetcher/internal/services"
)

// Components are the collaborators of a single run, built from that run's
// configuration snapshot.
type Components struct {
	Discoverer discovery.Discoverer
	Resolver   services.IdentifierResolver
	Acquirer   services.BackdropAcquirer
}

// ComponentsFactory builds the run collaborators for cfg
type ComponentsFactory func(cfg *config.Config, runLog zerolog.Logger) (*Components, error)

// NewComponentsFactory wires the real providers. idCache outlives runs and may be nil.
func NewComponentsFactory(idCache cache.Cache) ComponentsFactory {
	return func(cfg *config.Config, runLog zerolog.Logger) (*Components, error) {
		httpClient := client.NewHTTPClient(cfg)
		providers, tmdb := client.NewProviders(cfg, httpClient)
		fetcher := client.NewFetcher(httpClient)

		resolver := services.NewIdentifierResolver(tmdb, idCache)
		downloader := services.NewBackdropDownloader(fetcher, cfg.Output.BackdropDir, cfg.Output.Layout, runLog)

		return &Components{
			Discoverer: discovery.New(cfg, fetcher, runLog),
			Resolver:   resolver,
			Acquirer:   services.NewBackdropAcquirer(cfg, providers, resolver, downloader, runLog),
		}, nil
	}
}
