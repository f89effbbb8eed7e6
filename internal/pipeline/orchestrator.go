// Package pipeline drives a full backdrop run: discovery, identifier
// resolution, acquisition and manifest checkpoints, one run at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Belphemur/BackdropFetcher/internal/apperrors"
	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/manifest"
	"github.com/Belphemur/BackdropFetcher/internal/metrics"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// ErrClosed is returned by triggers received after Close
var ErrClosed = errors.New("orchestrator is closed")

// ConfigSaver persists configuration edits
type ConfigSaver interface {
	Save(cfg *config.Config) error
}

// Status is a snapshot of the orchestrator for the status endpoint
type Status struct {
	State   models.RunState    `json:"state"`
	Running bool               `json:"running"`
	RunID   string             `json:"runId,omitempty"`
	LastRun *models.RunSummary `json:"lastRun,omitempty"`
}

// Orchestrator owns the run lock and the configuration used by the next run
type Orchestrator struct {
	running atomic.Bool
	closed  atomic.Bool
	cfg     atomic.Pointer[config.Config]
	saver   ConfigSaver
	build   ComponentsFactory

	mu        sync.RWMutex
	state     models.RunState
	runID     string
	last      *models.RunSummary
	cancelRun context.CancelFunc
	listeners []func(*config.Config)
	runs      sync.WaitGroup
}

// New creates an orchestrator. saver may be nil when edits should not be persisted.
func New(cfg *config.Config, saver ConfigSaver, build ComponentsFactory) *Orchestrator {
	o := &Orchestrator{
		saver: saver,
		build: build,
		state: models.RunStateIdle,
	}
	o.cfg.Store(cfg)
	return o
}

// Config returns a copy of the configuration the next run will use
func (o *Orchestrator) Config() *config.Config {
	return o.cfg.Load().Clone()
}

// OnConfigChange registers fn to be called after every accepted configuration swap
func (o *Orchestrator) OnConfigChange(fn func(*config.Config)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

// UpdateConfig validates, saves and applies cfg for the next run
func (o *Orchestrator) UpdateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.saver != nil {
		if err := o.saver.Save(cfg); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}
	return o.ApplyConfig(cfg)
}

// ApplyConfig swaps the configuration without saving it, used for edits made
// directly to the file. A running run keeps its snapshot.
func (o *Orchestrator) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	next := cfg.Clone()
	next.ResolvePaths()
	o.cfg.Store(next)

	o.mu.RLock()
	listeners := append([]func(*config.Config){}, o.listeners...)
	o.mu.RUnlock()
	for _, fn := range listeners {
		fn(next.Clone())
	}

	logger := config.GetLogger()
	logger.Info().Msg("Configuration applied for the next run")
	return nil
}

// Status reports the current state and the last finished run
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Status{
		State:   o.state,
		Running: o.running.Load(),
		RunID:   o.runID,
		LastRun: o.last,
	}
}

// RunNow executes a run on the calling goroutine and returns its summary.
// It fails fast with *apperrors.ErrRunInProgress when a run is active.
func (o *Orchestrator) RunNow(ctx context.Context) (models.RunSummary, error) {
	return o.run(ctx, models.TriggerManual)
}

// OnScheduleFire runs the pipeline for the scheduler; the summary is only logged
func (o *Orchestrator) OnScheduleFire() {
	logger := config.GetLogger()
	summary, err := o.run(context.Background(), models.TriggerSchedule)
	if err != nil {
		if errors.Is(err, &apperrors.ErrRunInProgress{}) {
			logger.Warn().Err(err).Msg("Scheduled run skipped")
			return
		}
		logger.Error().Err(err).Str("runId", summary.RunID).Msg("Scheduled run failed")
		return
	}
	logger.Info().
		Str("runId", summary.RunID).
		Int("succeeded", summary.Succeeded).
		Int("noCandidates", summary.NoCandidates).
		Int("failed", summary.Failed).
		Msg("Scheduled run completed")
}

// Close cancels an active run and waits for it to checkpoint its manifest
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed.Store(true)
	cancel := o.cancelRun
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.runs.Wait()
	return nil
}

func (o *Orchestrator) setState(state models.RunState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, trigger models.Trigger) (models.RunSummary, error) {
	// mu orders runs.Add against Close
	o.mu.Lock()
	if o.closed.Load() {
		o.mu.Unlock()
		return models.RunSummary{}, ErrClosed
	}
	if !o.running.CompareAndSwap(false, true) {
		active := o.runID
		o.mu.Unlock()
		metrics.RejectedTriggersTotal.Inc()
		return models.RunSummary{}, &apperrors.ErrRunInProgress{RunID: active}
	}
	o.runs.Add(1)
	o.mu.Unlock()
	defer o.runs.Done()
	defer o.running.Store(false)

	logger := config.GetLogger()
	cfg := o.cfg.Load()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		State:     models.RunStateDiscovering,
		StartedAt: time.Now(),
	}

	o.mu.Lock()
	o.runID = summary.RunID
	o.cancelRun = cancel
	if o.closed.Load() {
		cancel()
	}
	o.mu.Unlock()

	metrics.RunInProgress.Set(1)
	defer metrics.RunInProgress.Set(0)

	runLog, closer := openRunLog(cfg.Output.RunLog, summary.RunID)
	defer closer.Close()

	logger.Info().Str("runId", summary.RunID).Str("trigger", string(trigger)).Msg("Run started")
	runLog.Info().Str("trigger", string(trigger)).Msg("Run started")

	err := o.execute(runCtx, cfg, runLog, &summary)

	summary.FinishedAt = time.Now()
	if err != nil {
		summary.State = models.RunStateFailed
		summary.Error = err.Error()
		runLog.Error().Err(err).Msg("Run failed")
		logger.Error().Err(err).Str("runId", summary.RunID).Msg("Run failed")
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("run_id", summary.RunID)
			scope.SetTag("trigger", string(trigger))
			sentry.CaptureException(err)
		})
	} else {
		summary.State = models.RunStateCompleted
		runLog.Info().
			Int("discovered", summary.Discovered).
			Int("dropped", summary.Dropped).
			Int("succeeded", summary.Succeeded).
			Int("noCandidates", summary.NoCandidates).
			Int("failed", summary.Failed).
			Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Run completed")
	}

	metrics.RunsTotal.WithLabelValues(string(trigger), string(summary.State)).Inc()
	metrics.RunDurationSeconds.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	o.mu.Lock()
	o.state = summary.State
	o.runID = ""
	o.cancelRun = nil
	last := summary
	o.last = &last
	o.mu.Unlock()

	return summary, err
}

func (o *Orchestrator) execute(ctx context.Context, cfg *config.Config, runLog zerolog.Logger, summary *models.RunSummary) error {
	setState := func(state models.RunState) {
		summary.State = state
		o.setState(state)
		runLog.Debug().Str("state", string(state)).Msg("State changed")
	}

	// discovering
	setState(models.RunStateDiscovering)
	store := manifest.NewStore(cfg.Output.ManifestPath)
	previous, err := store.LoadOrReset()
	if err != nil {
		return err
	}

	components, err := o.build(cfg, runLog)
	if err != nil {
		return fmt.Errorf("failed to prepare run: %w", err)
	}

	discovered, err := components.Discoverer.Discover(ctx)
	if err != nil {
		return err
	}
	entries := carryIdentifiers(discovered, previous)
	summary.Discovered = len(entries)
	runLog.Info().Int("titles", len(entries)).Int("previous", len(previous)).Msg("Discovery finished")

	// resolving
	setState(models.RunStateResolving)
	working := make([]models.TitleEntry, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return o.interrupt(store, append(working, entries[i:]...), err)
		}
		if entry.HasExternalID() {
			working = append(working, entry)
			continue
		}

		id, err := components.Resolver.Resolve(ctx, entry.Title, entry.MediaType)
		if err != nil {
			summary.Dropped++
			summary.Record(models.DownloadResult{Entry: entry, Outcome: models.OutcomeSkipped, Reason: err.Error()})
			metrics.EntryOutcomesTotal.WithLabelValues(string(entry.MediaType), string(models.OutcomeSkipped)).Inc()
			runLog.Warn().Str("title", entry.Title).Str("mediaType", string(entry.MediaType)).Err(err).Msg("Dropped: identifier not resolved")
			continue
		}
		entry.ExternalID = id
		summary.Resolved++
		runLog.Info().Str("title", entry.Title).Str("tmdbId", id).Msg("Identifier resolved")
		working = append(working, entry)
	}
	o.checkpoint(store, working, runLog)

	// acquiring
	setState(models.RunStateAcquiring)
	for i := 0; i < len(working); i++ {
		if err := ctx.Err(); err != nil {
			return o.interrupt(store, working, err)
		}

		result := components.Acquirer.Acquire(ctx, working[i])
		summary.Record(result)
		if result.Outcome == models.OutcomeSkipped {
			summary.Dropped++
			working = append(working[:i], working[i+1:]...)
			i--
		} else {
			working[i] = result.Entry
		}
		o.checkpoint(store, working, runLog)
	}

	// persisting
	setState(models.RunStatePersisting)
	if err := store.Save(working); err != nil {
		return &apperrors.ErrPersistence{Path: store.Path(), Err: err}
	}
	runLog.Info().Int("titles", len(working)).Str("path", store.Path()).Msg("Manifest written")
	return nil
}

// checkpoint writes the working manifest; failures are logged and the run continues
func (o *Orchestrator) checkpoint(store *manifest.Store, working []models.TitleEntry, runLog zerolog.Logger) {
	if err := store.Save(working); err != nil {
		runLog.Warn().Err(err).Msg("Manifest checkpoint failed")
	}
}

// interrupt flushes the working manifest of a cancelled run
func (o *Orchestrator) interrupt(store *manifest.Store, working []models.TitleEntry, cause error) error {
	if err := store.Save(working); err != nil {
		return errors.Join(cause, err)
	}
	return fmt.Errorf("run interrupted: %w", cause)
}

// carryIdentifiers fills missing ids of discovered entries from the previous manifest
func carryIdentifiers(discovered, previous []models.TitleEntry) []models.TitleEntry {
	known := make(map[string]string, len(previous))
	for _, entry := range previous {
		if entry.HasExternalID() {
			known[entry.Key()] = entry.ExternalID
		}
	}

	result := make([]models.TitleEntry, 0, len(discovered))
	for _, entry := range discovered {
		entry = entry.Normalize()
		if !entry.HasExternalID() {
			entry.ExternalID = known[entry.Key()]
		}
		result = append(result, entry)
	}
	return result
}
