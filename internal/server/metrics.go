package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default listen address for the metrics
	// server.
	DefaultMetricsAddr = ":9090"

	metricsReadTimeout  = 10 * time.Second
	metricsWriteTimeout = 10 * time.Second
	metricsIdleTimeout  = 60 * time.Second
)

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind to (e.g., ":9090").
	Addr string

	// Enabled determines whether the metrics server should be started.
	Enabled bool

	// InstrumentationProvider must be enabled; its prometheus exporter
	// feeds the /metrics endpoint.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated port, kept
// off the MCP listener so scrape traffic never mixes with tool calls.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
}

// NewMetricsServer validates the configuration and returns a server
// exposing /metrics for Prometheus scraping.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	return &MetricsServer{addr: config.Addr}, nil
}

// Start serves until Shutdown is called; run it in a goroutine for
// non-blocking operation.
func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()

	// The otel prometheus exporter registers into the global registry,
	// which promhttp.Handler() exposes.
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
		WriteTimeout:      metricsWriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}

	slog.Info("starting metrics server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *MetricsServer) Addr() string {
	return s.addr
}
