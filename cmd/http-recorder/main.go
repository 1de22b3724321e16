package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reixn/http-recorder/internal/adapters/archive"
	"github.com/reixn/http-recorder/internal/adapters/staging"
	"github.com/reixn/http-recorder/internal/infrastructure/affinity"
	cfgpkg "github.com/reixn/http-recorder/internal/infrastructure/config"
	"github.com/reixn/http-recorder/internal/infrastructure/httpapi"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
	"github.com/reixn/http-recorder/internal/usecase"
)

func main() {
	cfg := cfgpkg.FromEnv()

	logger := obs.NewLogger(cfg.LogLevel)
	logger.Info().Str("addr", cfg.Addr).Str("dest", cfg.RecordDest).Msg("starting http-recorder")

	metrics := obs.NewMetrics()

	placement := affinity.None()
	if cfg.PinWorkers {
		placement = affinity.NewRoundRobin()
	}

	factories := usecase.SinkFactories{
		NewStaging: func() (usecase.StagingSink, error) {
			return staging.New(staging.Options{
				PackSizeBytes: cfg.PackSizeBytes,
				Placement:     placement,
				Logger:        logger,
				Metrics:       metrics,
			})
		},
		NewArchive: func() (usecase.EntrySink, error) {
			return archive.New(archive.Options{
				Dest:             cfg.RecordDest,
				ArchiveSizeBytes: cfg.ArchiveSizeBytes,
				Layout:           archive.Layout(cfg.ArchiveLayout),
				DualFormat:       cfg.DualFormat,
				Placement:        placement,
				Logger:           logger,
				Metrics:          metrics,
			})
		},
	}

	rec := usecase.NewRecorder(factories, logger, metrics, usecase.Options{
		AbortOnFatal: cfg.OnFatal == "abort",
	})

	deps := &httpapi.Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Rec: rec}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	// Finalize the open session after intake has stopped so every accepted
	// entry reaches the archive.
	if err := rec.Finish(); err != nil {
		logger.Error().Err(err).Msg("session finish failed")
		os.Exit(1)
	}
	logger.Info().Msg("stopped")
}
