// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the inboxpilot MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, provider API calls, and the triage pipeline
//   - Distributed tracing for request flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active user sessions
//
// Mail Provider API Metrics:
//   - provider_api_operations_total: Counter of provider operations by operation and status
//   - provider_api_operation_duration_seconds: Histogram of provider operation durations
//
// Pipeline Metrics:
//   - messages_fetched_total: Counter of messages brought into the working set
//   - enrichment_total: Counter of enrichments by result (ai, fallback)
//   - enrichment_duration_seconds: Histogram of enrichment run durations
//   - actions_total: Counter of inbox actions by action and status
//   - unsubscribes_total: Counter of unsubscribe attempts by resolved method
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - MCP tool invocations (tool.<name>)
//   - Provider API calls (provider.<operation>)
//   - Enrichment runs
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxpilot)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "inboxpilot",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
//
//	// Record a provider operation
//	recorder.RecordProviderOperation(ctx, "list", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "inbox_list_messages", "success", time.Since(start))
package instrumentation
