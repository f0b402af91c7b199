// Package logging provides structured logging helpers built on slog.
//
// It centralizes the attribute keys used across the codebase so log
// streams stay queryable, and it hashes account addresses before they
// reach general logs: provider state and message content are PII, and
// only the audit stream may carry raw addresses.
package logging
