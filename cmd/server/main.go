package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/liveclass/internal/adapters/http"
	"github.com/dkeye/liveclass/internal/app"
	"github.com/dkeye/liveclass/internal/app/orch"
	"github.com/dkeye/liveclass/internal/config"
	"github.com/dkeye/liveclass/internal/metrics"
	"github.com/dkeye/liveclass/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context) error {
	cfg, err := config.LoadWatched(func(next *config.Config) {
		// only the log level is hot; everything else needs a restart
		next.ApplyLogLevel()
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Logger = cfg.NewLogger(os.Stderr)
	cfg.ApplyLogLevel()

	policy, err := app.PolicyFor(cfg.Backpressure)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Str("module", "storage").Msg("store close")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := orch.New(orch.Options{
		Store:          store,
		Policy:         policy,
		Metrics:        metrics.New(reg),
		RoomQueue:      cfg.RoomQueue,
		PersistTimeout: cfg.PersistTimeout,
	})

	r := router.SetupRouter(ctx, router.Deps{
		Config:   cfg,
		Orch:     hub,
		Store:    store,
		Gatherer: reg,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("live class hub started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		// hijacked websockets are not tracked by srv.Shutdown
		if err := hub.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("module", "orch").Msg("hub shutdown incomplete")
		}
		return nil
	})
	return g.Wait()
}
