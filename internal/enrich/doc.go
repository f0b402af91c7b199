// Package enrich attaches AI-derived classification to normalized
// messages: category, urgency, a suggested reply, a summary, and smart
// actions.
//
// Messages are processed in fixed-size batches; calls within a batch run
// concurrently, batches run in order. Every failure mode of the AI
// service (network error, non-JSON output, schema violation) degrades to
// a deterministic fallback for that one message, never affecting its
// siblings. The final list is stably sorted by urgency: high, then
// medium, then low.
package enrich
