// Package server builds the HTTP handler tree and runs it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/rect-search/internal/core/config"
	"github.com/mohammed-shakir/rect-search/internal/core/health"
	"github.com/mohammed-shakir/rect-search/internal/core/middleware"
	"github.com/mohammed-shakir/rect-search/internal/core/router"
	"github.com/mohammed-shakir/rect-search/internal/rectsearch"
)

const shutdownGrace = 10 * time.Second

// NewRouter wires the solve, probe and metrics routes.
func NewRouter(cfg config.Config, logger *slog.Logger, s router.Solver, ready health.Checker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", ready.Readiness())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/solve", router.HandleSolve(logger, cfg, s))
	r.Get("/containments", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"default":   cfg.Containment,
			"available": rectsearch.Names(),
		})
	})
	return r
}

// Run serves until ctx is done, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, s router.Solver, ready health.Checker) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return serve(ctx, ln, NewRouter(cfg, logger, s, ready), logger)
}

func serve(ctx context.Context, ln net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
