// Package resources provides MCP resources describing the server's
// vocabulary. Resources are read-only data sources that MCP clients can
// fetch, such as the category table and the action list.
//
// Unlike the tools, these resources carry no session state: they are the
// same for every caller and need no credentials.
package resources
