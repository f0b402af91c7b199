package inbox_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/tools/common"
)

// RegisterUnsubscribeTools registers the unsubscribe tool with the MCP server.
func RegisterUnsubscribeTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	unsubscribeTool := mcp.NewTool("inbox_unsubscribe",
		mcp.WithDescription("Unsubscribe from the sender of a message. Attempts RFC 8058 one-click unsubscribe first, then falls back to reporting an unsubscribe link from the headers or message body. Always marks the message read."),
		mcp.WithString("accounts",
			mcp.Required(),
			mcp.Description("Opaque encoded list of connected accounts with their tokens."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to unsubscribe from."),
		),
		mcp.WithString("accountEmail",
			mcp.Required(),
			mcp.Description("The address of the account that owns the message."),
		),
	)

	s.AddTool(unsubscribeTool, common.InstrumentedToolHandlerWithOperation(
		"inbox_unsubscribe", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUnsubscribe(ctx, request, sc)
		}))

	return nil
}

func handleUnsubscribe(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	accounts := common.SessionAccounts(args)

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return common.ToolError(common.ErrCodeUnsubscribeFailed, "messageId is required"), nil
	}

	accountEmail, ok := args["accountEmail"].(string)
	if !ok || accountEmail == "" {
		return common.ToolError(common.ErrCodeUnsubscribeFailed, "accountEmail is required"), nil
	}

	resolver := mailbox.NewResolver(sc.MailboxFactory(), slog.Default())
	result, err := resolver.Resolve(ctx, accounts, messageID, accountEmail)
	if err != nil {
		if errors.Is(err, mailbox.ErrAccountNotFound) {
			return common.ToolError(common.ErrCodeAccountNotFound,
				fmt.Sprintf("%s is not connected", accountEmail)), nil
		}
		return common.ToolError(common.ErrCodeUnsubscribeFailed, err.Error()), nil
	}

	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordUnsubscribe(ctx, result.Method)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return common.ToolError(common.ErrCodeUnsubscribeFailed,
			fmt.Sprintf("failed to encode result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}
