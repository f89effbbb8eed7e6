package services

import (
	"context"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/fallback"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/rs/zerolog"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/client"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/metrics"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// attempt is the outcome of asking one provider for candidates
type attempt struct {
	provider     models.Provider
	total        int
	languageFree int
	candidates   []models.Candidate
	err          error
}

// usable reports whether the attempt produced something to download
func (a attempt) usable() bool {
	return a.err == nil && len(a.candidates) > 0
}

// DefaultBackdropAcquirer implements BackdropAcquirer with a single bounded
// fallback from the secondary provider to the primary one.
type DefaultBackdropAcquirer struct {
	cfg        *config.Config
	providers  map[models.Provider]client.BackdropProvider
	resolver   IdentifierResolver
	downloader BackdropDownloader
	runLog     zerolog.Logger
}

// NewBackdropAcquirer creates an acquirer bound to one configuration snapshot
func NewBackdropAcquirer(
	cfg *config.Config,
	providers map[models.Provider]client.BackdropProvider,
	resolver IdentifierResolver,
	downloader BackdropDownloader,
	runLog zerolog.Logger,
) BackdropAcquirer {
	return &DefaultBackdropAcquirer{
		cfg:        cfg,
		providers:  providers,
		resolver:   resolver,
		downloader: downloader,
		runLog:     runLog,
	}
}

// Acquire runs provider selection, filtering, limiting and persistence for one entry
func (a *DefaultBackdropAcquirer) Acquire(ctx context.Context, entry models.TitleEntry) models.DownloadResult {
	result := a.acquire(ctx, entry)
	metrics.EntryOutcomesTotal.WithLabelValues(string(entry.MediaType), string(result.Outcome)).Inc()
	if result.FellBack {
		metrics.FallbacksTotal.WithLabelValues(string(entry.MediaType)).Inc()
	}
	return result
}

func (a *DefaultBackdropAcquirer) acquire(ctx context.Context, entry models.TitleEntry) models.DownloadResult {
	logger := config.GetLogger()
	entry = entry.Normalize()

	if !entry.HasExternalID() {
		id, err := a.resolver.Resolve(ctx, entry.Title, entry.MediaType)
		if err != nil {
			a.runLog.Warn().Str("title", entry.Title).Str("mediaType", string(entry.MediaType)).Err(err).Msg("Skipped: no identifier")
			return models.DownloadResult{Entry: entry, Outcome: models.OutcomeSkipped, Reason: err.Error()}
		}
		entry.ExternalID = id
	}

	preferred := a.cfg.PreferredFor(entry.MediaType)
	fellBack := false

	toPrimary := fallback.NewBuilderWithFunc[attempt](func(exec failsafe.Execution[attempt]) (attempt, error) {
		fellBack = true
		return a.query(exec.Context(), models.PrimaryProvider, entry), nil
	}).HandleIf(func(r attempt, _ error) bool {
		if !preferred.IsSecondary() || r.usable() {
			return false
		}
		if r.err != nil {
			a.runLog.Warn().
				Str("title", entry.Title).
				Str("provider", r.provider.String()).
				Err(r.err).
				Msgf("Provider failed, falling back to %s", models.PrimaryProvider)
		} else {
			a.runLog.Info().
				Str("title", entry.Title).
				Str("provider", r.provider.String()).
				Int("candidates", r.total).
				Int("languageFree", r.languageFree).
				Msgf("No language-free backdrops, falling back to %s", models.PrimaryProvider)
		}
		return true
	}).Build()

	used, err := failsafe.With[attempt](toPrimary).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[attempt]) (attempt, error) {
			return a.query(exec.Context(), preferred, entry), nil
		})
	if err != nil && used.err == nil {
		used.err = err
	}

	result := models.DownloadResult{Entry: entry, Provider: used.provider, FellBack: fellBack}
	if used.provider == "" {
		result.Provider = preferred
	}

	switch {
	case used.err != nil:
		logger.Warn().Err(used.err).Str("title", entry.Title).Str("provider", result.Provider.String()).Msg("Backdrop acquisition failed")
		a.runLog.Error().
			Str("title", entry.Title).
			Str("provider", result.Provider.String()).
			Bool("fellBack", fellBack).
			Err(used.err).
			Msg("Provider error")
		result.Outcome = models.OutcomeProviderError
		result.Reason = used.err.Error()
		return result

	case len(used.candidates) == 0:
		reason := &apperrors.ErrNoCandidates{Provider: used.provider.String(), Title: entry.Title}
		a.runLog.Info().
			Str("title", entry.Title).
			Str("provider", used.provider.String()).
			Int("candidates", used.total).
			Int("languageFree", 0).
			Bool("fellBack", fellBack).
			Msg("No language-free backdrops")
		result.Outcome = models.OutcomeNoCandidates
		result.Reason = reason.Error()
		return result
	}

	a.runLog.Info().
		Str("title", entry.Title).
		Str("provider", used.provider.String()).
		Int("candidates", used.total).
		Int("languageFree", used.languageFree).
		Int("selected", len(used.candidates)).
		Bool("fellBack", fellBack).
		Msg("Selected backdrops")

	paths, err := a.downloader.Persist(ctx, entry, used.provider, used.candidates)
	result.SavedPaths = paths
	if err != nil {
		a.runLog.Error().Str("title", entry.Title).Str("provider", used.provider.String()).Err(err).Msg("Persistence failed")
		result.Outcome = models.OutcomeProviderError
		result.Reason = err.Error()
		return result
	}

	result.Outcome = models.OutcomeSuccess
	return result
}

// query lists, filters and limits the candidates of one provider under the request timeout
func (a *DefaultBackdropAcquirer) query(ctx context.Context, name models.Provider, entry models.TitleEntry) attempt {
	result := attempt{provider: name}

	provider, ok := a.providers[name]
	if !ok {
		result.err = &apperrors.ErrConfiguration{Key: "providers." + name.String(), Reason: "provider is not available"}
		return result
	}

	candidates, err := failsafe.With[[]models.Candidate](timeout.New[[]models.Candidate](a.cfg.Timeout())).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[[]models.Candidate]) ([]models.Candidate, error) {
			return provider.ListBackdrops(exec.Context(), entry.MediaType, entry.ExternalID)
		})
	if err != nil {
		if !apperrors.IsProviderFailure(err) {
			err = &apperrors.ErrProviderTransport{Provider: name.String(), Err: err}
		}
		result.err = err
		return result
	}

	filtered := FilterLanguageFree(candidates)
	result.total = len(candidates)
	result.languageFree = len(filtered)
	result.candidates = ApplyLimit(filtered, a.cfg.BackdropLimit)
	return result
}
