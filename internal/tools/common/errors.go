package common

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Stable error codes tool handlers return to callers.
const (
	ErrCodeNotAuthenticated  = "not_authenticated"
	ErrCodeTokenExpired      = "token_expired"
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeInvalidAction     = "invalid_action"
	ErrCodeAccountNotFound   = "account_not_found"
	ErrCodeNoForwardAddress  = "no_forward_address"
	ErrCodeActionFailed      = "action_failed"
	ErrCodeUnsubscribeFailed = "unsubscribe_failed"
)

// ToolError builds the structured failure payload every tool returns:
// a stable machine-readable code plus a human-readable detail string.
// Raw provider errors never reach the caller unwrapped.
func ToolError(code, detail string) *mcp.CallToolResult {
	payload, err := json.Marshal(map[string]string{
		"error":  code,
		"detail": detail,
	})
	if err != nil {
		return mcp.NewToolResultError(code)
	}
	return mcp.NewToolResultError(string(payload))
}
