package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/cursor-gcp-connector/internal/proxy"
)

// shutdownTimeout bounds the graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// App orchestrates the lifecycle of the connector.
type App struct {
	cfg    *Config
	health *Health
	proxy  *proxy.Proxy
}

// New creates an App from cfg.
func New(cfg *Config) (*App, error) {
	health := NewHealth()

	proxyServer, err := proxy.New(cfg.Backend.URL, health,
		proxy.WithTimeouts(cfg.Backend.PostTimeout, cfg.Backend.GetTimeout),
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithDebug(cfg.Debug),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:    cfg,
		health: health,
		proxy:  proxyServer,
	}, nil
}

// Health returns the readiness state served on /health.
func (a *App) Health() *Health {
	return a.health
}

// Start starts all services and blocks until ctx is cancelled or a service fails.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	slog.InfoContext(gCtx, "starting proxy server",
		"addr", a.cfg.Addr(),
		"backend", a.cfg.Backend.URL,
		"debug", a.cfg.Debug,
	)
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.SetReady(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err, ok := <-proxyErrCh:
			if ok && err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	a.health.SetReady(false)
	slog.InfoContext(ctx, "shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.InfoContext(ctx, "application stopped")
	return nil
}
