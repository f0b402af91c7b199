package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/enrich"
	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/logging"
	"github.com/inboxpilot/inboxpilot/internal/resources"
	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/tools/inbox_tools"
)

const (
	// shutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
	shutdownTimeout = 30 * time.Second

	// streamableHTTPEndpoint is the path the MCP streamable HTTP
	// transport is mounted on.
	streamableHTTPEndpoint = "/mcp"
)

type serveOptions struct {
	debug          bool
	transport      string
	httpAddr       string
	metricsEnabled bool
	metricsAddr    string
	aiModel        string
	pageSize       int64
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing inbox triage tools.

The server is stateless: account credentials arrive with every tool
call as an opaque accounts blob, so no tokens are stored on the server
side. AI enrichment is enabled when the ANTHROPIC_API_KEY environment
variable is set; without it messages are categorized by deterministic
heuristics.

Transports:
  stdio            communicate over stdin/stdout (default)
  streamable-http  serve MCP over HTTP on --http-addr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "Listen address for the streamable-http transport")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port (streamable-http only)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Listen address for the metrics server (default \":9090\", env METRICS_ADDR)")
	cmd.Flags().StringVar(&opts.aiModel, "ai-model", "", "Anthropic model used for enrichment (default is a recent Claude model)")
	cmd.Flags().Int64Var(&opts.pageSize, "page-size", 0, "Unread messages fetched per account (default 20)")

	return cmd
}

func runServe(opts *serveOptions) error {
	logger := logging.New(os.Stderr, opts.debug)
	slog.SetDefault(logger)

	if opts.transport != "stdio" && opts.transport != "streamable-http" {
		return fmt.Errorf("invalid transport %q: must be stdio or streamable-http", opts.transport)
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = os.Getenv("METRICS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	auditLogger := instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)

	contextOpts := []server.Option{
		server.WithInstrumentation(provider, auditLogger),
	}
	if opts.pageSize > 0 {
		contextOpts = append(contextOpts, server.WithPageSize(opts.pageSize))
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		contextOpts = append(contextOpts, server.WithEnricher(enrich.NewAnthropicClient(apiKey, opts.aiModel)))
	} else {
		slog.Info("ANTHROPIC_API_KEY not set, enrichment uses heuristic fallback only")
	}

	sc := server.NewServerContext(ctx, contextOpts...)
	defer func() {
		if err := sc.Shutdown(); err != nil {
			slog.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := registerAll(mcpSrv, sc); err != nil {
		return err
	}

	switch opts.transport {
	case "streamable-http":
		return runStreamableHTTP(ctx, mcpSrv, sc, opts)
	default:
		return runStdio(ctx, mcpSrv)
	}
}

// registerAll wires every tool and resource onto the MCP server.
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := inbox_tools.RegisterInboxTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register inbox tools: %w", err)
	}
	if err := resources.RegisterInboxResources(mcpSrv); err != nil {
		return fmt.Errorf("failed to register inbox resources: %w", err)
	}
	return nil
}

func runStdio(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	slog.Info("starting MCP server", "transport", "stdio", "version", version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.ServeStdio(mcpSrv)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		return nil
	}
}

func runStreamableHTTP(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts *serveOptions) error {
	var metricsSrv *server.MetricsServer
	if opts.metricsEnabled && sc.Provider() != nil && sc.Provider().Enabled() {
		var err error
		metricsSrv, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			Enabled:                 true,
			InstrumentationProvider: sc.Provider(),
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(streamableHTTPEndpoint),
	)

	mux := http.NewServeMux()
	mux.Handle(streamableHTTPEndpoint, streamable)

	health := server.NewHealthChecker(sc)
	health.RegisterHealthEndpoints(mux)

	httpSrv := &http.Server{
		Addr:              opts.httpAddr,
		Handler:           withHTTPMetrics(sc, mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting MCP server",
			"transport", "streamable-http",
			"addr", opts.httpAddr,
			"endpoint", streamableHTTPEndpoint,
			"version", version)
		errCh <- httpSrv.ListenAndServe()
	}()
	health.SetReady(true)

	select {
	case <-ctx.Done():
		health.SetReady(false)
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}
}

// withHTTPMetrics records request counts and latency when metrics are
// enabled, and is a pass-through otherwise.
func withHTTPMetrics(sc *server.ServerContext, next http.Handler) http.Handler {
	metrics := sc.Metrics()
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
