// Package inbox_tools provides MCP (Model Context Protocol) tools for
// the inbox triage pipeline.
//
// This package exposes the pipeline through MCP tools that can be called
// by AI agents or other MCP clients:
//
//   - inbox_list_messages: fetch unread inbox messages across all
//     connected accounts, enriched with AI-derived category, urgency,
//     summary, and reply suggestions
//   - inbox_perform_action: execute one inbox action (send, mark_read,
//     archive, delete, unsubscribe, snooze, unsnooze, forward,
//     unsnooze_batch) against the owning account
//   - inbox_unsubscribe: run the one-click unsubscribe protocol with its
//     fallback chain against a single message
//
// All session state is caller-supplied: every tool takes an opaque
// encoded accounts blob and resolves credentials per call. Handlers hold
// no state between requests.
//
// Failures are reported as a structured payload with a stable error code
// ("not_authenticated", "token_expired", "fetch_failed",
// "invalid_action", "account_not_found", "no_forward_address",
// "action_failed", "unsubscribe_failed") plus a human-readable detail
// string.
package inbox_tools
