package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poetry-royal/mefil/internal/config"
	"github.com/poetry-royal/mefil/internal/health"
	"github.com/poetry-royal/mefil/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		Readiness:     readiness,

		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
	}
}

// Run serves until the context is cancelled, then drains connections and
// flushes telemetry.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown drains the HTTP server and flushes the observability pipeline,
// each within its own configured timeout.
func (a *App) Shutdown() error {
	drainCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownHTTPDrainTimeout)
	defer cancel()
	if err := a.Server.Shutdown(drainCtx); err != nil {
		a.Logger.Warn("http drain", "error", err)
	}

	if a.Observability != nil {
		obsCtx, cancelObs := context.WithTimeout(context.Background(), a.ShutdownObservabilityTimeout)
		defer cancelObs()
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Warn("observability shutdown", "error", err)
		}
	}
	return nil
}
