// Package cmd implements the command-line interface for inboxpilot.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing inbox triage tools
//   - triage: Fetch and enrich unread messages once, printing JSON
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
