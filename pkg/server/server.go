// Package server exposes the exporter's HTTP surface: the Prometheus
// scrape endpoint plus health and readiness probes. Middleware handles
// request IDs, panic recovery, rate limiting, and request metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Lazarev-Cloud/proxmox-prometheus-exporter/pkg/defaults"
)

// Config carries the HTTP server settings.
type Config struct {
	Address         string
	Port            int
	RateLimit       rate.Limit
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the standard exporter server settings. Scrapes
// are cheap reads of the series table, so the rate limit only guards
// against misconfigured scrapers hammering the endpoint.
func DefaultConfig() Config {
	return Config{
		Port:            defaults.MetricsPort,
		RateLimit:       10,
		RateLimitBurst:  20,
		ReadTimeout:     defaults.ServerReadTimeout,
		WriteTimeout:    defaults.ServerWriteTimeout,
		IdleTimeout:     defaults.ServerIdleTimeout,
		ShutdownTimeout: defaults.ServerShutdownTimeout,
	}
}

// Server is the exporter's HTTP server.
type Server struct {
	config      Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	log         *slog.Logger
	ready       func() bool
}

// New creates a server scraping the given gatherer. The ready func
// reports whether startup detection has completed; nil means always
// ready.
func New(cfg Config, gatherer prometheus.Gatherer, ready func() bool, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}

	s := &Server{
		config:      cfg,
		rateLimiter: rate.NewLimiter(cfg.RateLimit, cfg.RateLimitBurst),
		log:         log.With("component", "server"),
		ready:       ready,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", s.withMiddleware(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP))
	mux.HandleFunc("/", s.handleIndex)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("metrics server listening", "addr", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return fmt.Errorf("metrics server: %w", err)
	}
}

// Shutdown stops the server, waiting out in-flight scrapes up to the
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("metrics server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html><head><title>Node Exporter</title></head><body>
<h1>Node Exporter</h1>
<p><a href="/metrics">Metrics</a></p>
</body></html>
`)
}
