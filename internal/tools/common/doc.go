// Package common holds the helpers shared by the MCP tool handlers:
// decoding the per-call session arguments (accounts blob, unsubscribed
// senders, snooze targets), the structured error payload every tool
// returns on failure, and the instrumentation wrapper that records
// metrics and audit events around a handler.
package common
