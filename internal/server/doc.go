// Package server provides the MCP server context, health endpoints, and
// the dedicated metrics server for the inboxpilot application.
//
// # Key Components
//
// ServerContext bundles the stateless collaborators every tool handler
// needs: the mailbox connection factory, the AI enrichment client, and
// the observability provider. Account credentials never live here; they
// arrive with each tool call as opaque session state supplied by the
// caller, so the server itself holds no per-user state.
//
// HealthChecker exposes /healthz and /readyz endpoints for Kubernetes
// probes when the server runs over HTTP transport.
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolated
// from the main application traffic.
package server
