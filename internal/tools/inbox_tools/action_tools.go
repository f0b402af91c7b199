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

// RegisterActionTools registers the action tool with the MCP server.
func RegisterActionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	actionTool := mcp.NewTool("inbox_perform_action",
		mcp.WithDescription("Perform one inbox action against the owning account: send, mark_read, archive, delete, unsubscribe, snooze, unsnooze, forward, or unsnooze_batch. Every terminal action removes the message from the unread inbox listing."),
		mcp.WithString("accounts",
			mcp.Required(),
			mcp.Description("Opaque encoded list of connected accounts with their tokens."),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("The action to perform."),
		),
		mcp.WithObject("email",
			mcp.Description("The normalized message the action targets. Required for every action except unsnooze_batch."),
		),
		mcp.WithString("replyText",
			mcp.Description("Reply body for the send action. When empty, send marks the message read and archives it without replying."),
		),
		mcp.WithString("forwardTo",
			mcp.Description("Recipient address for the forward action."),
		),
		mcp.WithArray("snoozeIds",
			mcp.Description("Targets for unsnooze_batch: objects with emailId and account."),
		),
	)

	s.AddTool(actionTool, common.InstrumentedToolHandlerWithOperation(
		"inbox_perform_action", instrumentation.OperationModify, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePerformAction(ctx, request, sc)
		}))

	return nil
}

func handlePerformAction(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	accounts := common.SessionAccounts(args)
	if len(accounts) == 0 {
		return common.ToolError(common.ErrCodeNotAuthenticated, "no connected accounts"), nil
	}

	action, ok := args["action"].(string)
	if !ok || action == "" {
		return common.ToolError(common.ErrCodeInvalidAction, "action is required"), nil
	}

	req := mailbox.ActionRequest{Action: action}

	if action == mailbox.ActionUnsnoozeBatch {
		targets, err := common.ParseSnoozeTargets(args["snoozeIds"])
		if err != nil {
			return common.ToolError(common.ErrCodeInvalidAction, err.Error()), nil
		}
		req.SnoozeTargets = targets
	} else {
		msg, err := messageFromArgs(args)
		if err != nil {
			return common.ToolError(common.ErrCodeInvalidAction, err.Error()), nil
		}
		req.Message = msg
		req.ReplyText, _ = args["replyText"].(string)
		req.ForwardTo, _ = args["forwardTo"].(string)
	}

	executor := mailbox.NewExecutor(sc.MailboxFactory(), slog.Default())
	result, err := executor.Perform(ctx, accounts, req)
	if err != nil {
		recordAction(ctx, sc, action, instrumentation.StatusError)
		return common.ToolError(actionErrorCode(err), err.Error()), nil
	}

	recordAction(ctx, sc, action, instrumentation.StatusSuccess)

	payload := map[string]interface{}{
		"success": true,
		"action":  result.Action,
	}
	if action == mailbox.ActionUnsnoozeBatch {
		payload["unsnoozed"] = result.Unsnoozed
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return common.ToolError(common.ErrCodeActionFailed,
			fmt.Sprintf("failed to encode result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(encoded)), nil
}

// messageFromArgs decodes the target message object out of the request
// arguments by a JSON round trip into the normalized Message type.
func messageFromArgs(args map[string]interface{}) (*mailbox.Message, error) {
	obj, ok := args["email"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("email is required for this action")
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("email is not a valid message object: %w", err)
	}

	var msg mailbox.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("email is not a valid message object: %w", err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("email.id is required")
	}
	if msg.Account == "" {
		return nil, fmt.Errorf("email.account is required")
	}
	return &msg, nil
}

// actionErrorCode maps executor sentinels to the stable codes callers see.
func actionErrorCode(err error) string {
	switch {
	case errors.Is(err, mailbox.ErrInvalidAction):
		return common.ErrCodeInvalidAction
	case errors.Is(err, mailbox.ErrNoForwardAddress):
		return common.ErrCodeNoForwardAddress
	case errors.Is(err, mailbox.ErrAccountNotFound):
		return common.ErrCodeAccountNotFound
	default:
		return common.ErrCodeActionFailed
	}
}

func recordAction(ctx context.Context, sc *server.ServerContext, action, status string) {
	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordAction(ctx, action, status)
	}
}
