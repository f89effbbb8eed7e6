package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/pipeline"
	"github.com/Belphemur/BackdropFetcher/internal/scheduler"
	"github.com/Belphemur/BackdropFetcher/internal/server"
	"github.com/Belphemur/BackdropFetcher/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	logger := config.GetLogger()

	store := config.NewStore(*configPath)
	cfg, err := store.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.ConfigureLogger(cfg.LogLevel)
	logger = config.GetLogger()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	logger.Info().
		Str("config", store.Path()).
		Str("discovery_mode", cfg.Discovery.Mode).
		Str("backdrop_dir", cfg.Output.BackdropDir).
		Str("backdrop_limit", cfg.BackdropLimit).
		Str("schedule", cfg.Schedule.Mode).
		Str("cache", cfg.Cache.Provider).
		Msg("Application started with configuration")

	idCache, err := services.NewIdentifierCache(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create identifier cache")
	}
	defer func() {
		if err := idCache.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close identifier cache")
		}
	}()

	orchestrator := pipeline.New(cfg, store, pipeline.NewComponentsFactory(idCache))

	if *once {
		summary, err := orchestrator.RunNow(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("Run failed")
			sentry.Flush(2 * time.Second)
			os.Exit(1)
		}
		logger.Info().
			Str("runId", summary.RunID).
			Int("succeeded", summary.Succeeded).
			Int("noCandidates", summary.NoCandidates).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Msg("Run completed")
		return
	}

	sched := scheduler.New(orchestrator.OnScheduleFire)
	if err := sched.Arm(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Failed to arm schedule")
	}
	orchestrator.OnConfigChange(func(next *config.Config) {
		if err := sched.Arm(next); err != nil {
			logger.Error().Err(err).Msg("Failed to re-arm schedule")
		}
	})
	store.Watch(func(next *config.Config) {
		if err := orchestrator.ApplyConfig(next); err != nil {
			logger.Error().Err(err).Msg("Ignoring invalid configuration change")
		}
	})
	sched.Start()

	handler := server.NewHandler(orchestrator, sched.Next, cfg.Metrics.Enabled)
	httpServer := server.NewHTTPServer(cfg.Server.Address, cfg.Server.Port, handler)

	go func() {
		logger.Info().Str("address", httpServer.Addr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopped := sched.Stop()
	if err := orchestrator.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close orchestrator")
	}
	<-stopped.Done()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	logger.Info().Msg("Server stopped gracefully")
}
