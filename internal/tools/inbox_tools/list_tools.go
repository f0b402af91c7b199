package inbox_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/enrich"
	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/tools/common"
)

// RegisterListTools registers the message listing tool with the MCP server.
func RegisterListTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("inbox_list_messages",
		mcp.WithDescription("List unread inbox messages across all connected accounts, enriched with AI-derived category, urgency, summary, and reply suggestions. Messages are sorted by urgency, high first."),
		mcp.WithString("accounts",
			mcp.Required(),
			mcp.Description("Opaque encoded list of connected accounts with their tokens."),
		),
		mcp.WithString("unsubscribedSenders",
			mcp.Description("Opaque encoded list of senders the user previously unsubscribed from. Matching messages are flagged in the result."),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandlerWithOperation(
		"inbox_list_messages", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	return nil
}

// listResult is the JSON payload the list tool returns: the enriched
// working set plus a token-free summary of the connected accounts.
type listResult struct {
	Messages []*mailbox.Message `json:"messages"`
	Accounts []account.Summary  `json:"accounts"`
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	accounts := common.SessionAccounts(args)
	if len(accounts) == 0 {
		return common.ToolError(common.ErrCodeNotAuthenticated, "no connected accounts"), nil
	}

	fetcher := mailbox.NewFetcher(sc.MailboxFactory(), slog.Default()).
		WithPageSize(sc.PageSize())

	msgs, err := fetcher.FetchUnread(ctx, accounts)
	if err != nil {
		var authErr *mailbox.AuthError
		if errors.As(err, &authErr) {
			return common.ToolError(common.ErrCodeTokenExpired,
				fmt.Sprintf("credentials for %s have expired, re-authenticate the account", authErr.Account)), nil
		}
		return common.ToolError(common.ErrCodeFetchFailed, err.Error()), nil
	}

	metrics := sc.Metrics()
	if metrics != nil {
		metrics.RecordMessagesFetched(ctx, len(msgs))
	}

	// Without an AI client the pipeline still applies the deterministic
	// fallback and urgency sort, so the payload shape never depends on
	// server configuration.
	pipeline := enrich.NewPipeline(sc.Enricher(), slog.Default())
	if metrics != nil {
		pipeline = pipeline.WithRecorder(metrics)
	}

	start := time.Now()
	msgs = pipeline.Enrich(ctx, msgs)
	if metrics != nil {
		metrics.RecordEnrichmentDuration(ctx, time.Since(start))
	}

	markPreviouslyUnsubscribed(msgs, common.SessionSenders(args))

	if msgs == nil {
		msgs = []*mailbox.Message{}
	}

	payload, err := json.Marshal(listResult{
		Messages: msgs,
		Accounts: account.Summaries(accounts),
	})
	if err != nil {
		return common.ToolError(common.ErrCodeFetchFailed,
			fmt.Sprintf("failed to encode result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

// markPreviouslyUnsubscribed flags messages whose sender the caller has
// already unsubscribed from in an earlier session.
func markPreviouslyUnsubscribed(msgs []*mailbox.Message, senders []string) {
	if len(senders) == 0 {
		return
	}

	set := make(map[string]struct{}, len(senders))
	for _, s := range senders {
		set[strings.ToLower(s)] = struct{}{}
	}

	for _, m := range msgs {
		if _, ok := set[strings.ToLower(m.Email)]; ok {
			m.PreviouslyUnsubscribed = true
		}
	}
}
