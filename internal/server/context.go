package server

import (
	"context"
	"sync"

	"github.com/inboxpilot/inboxpilot/internal/enrich"
	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

// ServerContext holds the shared dependencies for the MCP server. Account
// credentials are not held here: they arrive with each tool call as opaque
// session state, so the context only carries the stateless collaborators.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	connect  mailbox.Factory
	enricher enrich.Client
	pageSize int64

	provider    *instrumentation.Provider
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMailboxFactory overrides the provider connection factory. Tests use
// this to substitute fakes.
func WithMailboxFactory(connect mailbox.Factory) Option {
	return func(sc *ServerContext) {
		sc.connect = connect
	}
}

// WithEnricher sets the AI completion client used for message enrichment.
// Without one, listings fall back to deterministic enrichment.
func WithEnricher(client enrich.Client) Option {
	return func(sc *ServerContext) {
		sc.enricher = client
	}
}

// WithPageSize overrides the per-account fetch limit.
func WithPageSize(n int64) Option {
	return func(sc *ServerContext) {
		if n > 0 {
			sc.pageSize = n
		}
	}
}

// WithInstrumentation attaches the observability provider and audit logger.
func WithInstrumentation(provider *instrumentation.Provider, audit *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.provider = provider
		sc.auditLogger = audit
	}
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		connect:  mailbox.Connect,
		pageSize: mailbox.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// MailboxFactory returns the provider connection factory.
func (sc *ServerContext) MailboxFactory() mailbox.Factory {
	return sc.connect
}

// Enricher returns the AI completion client, or nil when enrichment is
// running in fallback-only mode.
func (sc *ServerContext) Enricher() enrich.Client {
	return sc.enricher
}

// PageSize returns the per-account fetch limit.
func (sc *ServerContext) PageSize() int64 {
	return sc.pageSize
}

// Metrics returns the metrics recorder, or nil when instrumentation is
// not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.provider == nil {
		return nil
	}
	return sc.provider.Metrics()
}

// Provider returns the instrumentation provider, or nil when none is
// configured.
func (sc *ServerContext) Provider() *instrumentation.Provider {
	return sc.provider
}

// AuditLogger returns the audit logger, or nil when none is configured.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
