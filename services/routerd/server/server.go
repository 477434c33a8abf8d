// Package server hosts the routerd HTTP surface: pool state reads, sell
// quoting, trade history, and prometheus metrics. State-mutating swaps stay
// in-process; the HTTP layer is an operator and observer surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"liquidroute/native/pool"
	"liquidroute/observability"
	"liquidroute/services/routerd/storage"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	ReadTimeout   time.Duration
	ShutdownGrace time.Duration
}

// Server exposes the router engine over HTTP.
type Server struct {
	cfg    Config
	engine *pool.Engine
	trades *storage.Storage
	logger *slog.Logger
}

// New constructs the server. Trade history is optional; handlers that need it
// report unavailability when it is absent.
func New(cfg Config, engine *pool.Engine, trades *storage.Storage, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("server: engine required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8095"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	return &Server{cfg: cfg, engine: engine, trades: trades, logger: logger}, nil
}

// Handler assembles the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(measure)
	r.Get("/healthz", s.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/pool/reserves", s.handleReserves)
		r.Get("/pool/shares/{addr}", s.handleShares)
		r.Get("/pool/stats", s.handleStats)
		r.Get("/pool/sources", s.handleSources)
		r.Post("/swap/quote", s.handleQuote)
		r.Get("/trades", s.handleTrades)
	})
	r.Handle("/metrics", promhttp.Handler())
	return otelhttp.NewHandler(r, "routerd")
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// measure records per-route outcome and latency.
func measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		operation := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			operation = rctx.RoutePattern()
		}
		var err error
		if sw.status >= http.StatusInternalServerError {
			err = fmt.Errorf("status %d", sw.status)
		}
		observability.Router().ObserveOperation(operation, time.Since(start), err)
	})
}

// Run serves until the context is cancelled, then drains connections within
// the configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.ListenAddress,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", s.cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
