package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
	attrAction    = "action"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Mail provider API metrics
	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	// Pipeline metrics
	messagesFetchedTotal metric.Int64Counter
	enrichmentTotal      metric.Int64Counter
	enrichmentDuration   metric.Float64Histogram
	actionsTotal         metric.Int64Counter
	unsubscribesTotal    metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active user sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Mail provider API Metrics
	m.providerOperationsTotal, err = meter.Int64Counter(
		"provider_api_operations_total",
		metric.WithDescription("Total number of mail provider API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_operations_total counter: %w", err)
	}

	m.providerOperationDuration, err = meter.Float64Histogram(
		"provider_api_operation_duration_seconds",
		metric.WithDescription("Mail provider API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_operation_duration_seconds histogram: %w", err)
	}

	// Pipeline Metrics
	m.messagesFetchedTotal, err = meter.Int64Counter(
		"messages_fetched_total",
		metric.WithDescription("Total number of messages fetched into the working set"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_fetched_total counter: %w", err)
	}

	m.enrichmentTotal, err = meter.Int64Counter(
		"enrichment_total",
		metric.WithDescription("Total number of message enrichments by result (ai or fallback)"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment_total counter: %w", err)
	}

	m.enrichmentDuration, err = meter.Float64Histogram(
		"enrichment_duration_seconds",
		metric.WithDescription("Duration of an enrichment run in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment_duration_seconds histogram: %w", err)
	}

	m.actionsTotal, err = meter.Int64Counter(
		"actions_total",
		metric.WithDescription("Total number of inbox actions performed"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create actions_total counter: %w", err)
	}

	m.unsubscribesTotal, err = meter.Int64Counter(
		"unsubscribes_total",
		metric.WithDescription("Total number of unsubscribe attempts by resolved method"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unsubscribes_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordProviderOperation records a mail provider API operation.
//
// Parameters:
//   - operation: Operation type (list, get, modify, trash, send)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordProviderOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.providerOperationsTotal == nil || m.providerOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessagesFetched records the number of messages a fetch brought
// into the working set.
func (m *Metrics) RecordMessagesFetched(ctx context.Context, count int) {
	if m.messagesFetchedTotal == nil {
		return // Instrumentation not initialized
	}

	m.messagesFetchedTotal.Add(ctx, int64(count))
}

// RecordEnrichment records enrichment outcomes for a run and its duration.
// Result should be one of: "ai", "fallback"
func (m *Metrics) RecordEnrichment(ctx context.Context, result string, count int) {
	if m.enrichmentTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.enrichmentTotal.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordEnrichmentDuration records how long a full enrichment run took.
func (m *Metrics) RecordEnrichmentDuration(ctx context.Context, duration time.Duration) {
	if m.enrichmentDuration == nil {
		return // Instrumentation not initialized
	}

	m.enrichmentDuration.Record(ctx, duration.Seconds())
}

// RecordAction records an inbox action with its name and result status.
// Status should be one of: "success", "error"
func (m *Metrics) RecordAction(ctx context.Context, action, status string) {
	if m.actionsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	}

	m.actionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUnsubscribe records an unsubscribe attempt with the method the
// fallback chain resolved to. Method should be one of: "one-click",
// "link", "none"
func (m *Metrics) RecordUnsubscribe(ctx context.Context, method string) {
	if m.unsubscribesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, method),
	}

	m.unsubscribesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "inbox_list_messages", "inbox_perform_action")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// This is the detailed version that includes account information when detailedLabels is enabled.
//
// Parameters:
//   - toolName: Name of the MCP tool
//   - status: Result status ("success" or "error")
//   - account: Anonymized account identifier (only included if detailedLabels is true)
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
