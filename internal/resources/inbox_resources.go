package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/enrich"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

// RegisterInboxResources registers the static inbox resources. Both are
// session-independent: they describe the server's vocabulary, not any
// caller's data.
func RegisterInboxResources(s *mcpserver.MCPServer) error {
	categoriesResource := mcp.NewResource(
		"inbox://categories",
		"Message Categories",
		mcp.WithResourceDescription("The closed set of categories the enrichment pipeline assigns, with their display colors"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(categoriesResource, handleCategories)

	actionsResource := mcp.NewResource(
		"inbox://actions",
		"Inbox Actions",
		mcp.WithResourceDescription("The action vocabulary accepted by inbox_perform_action"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(actionsResource, handleActions)

	return nil
}

func handleCategories(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type categoryInfo struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	var categories []categoryInfo
	for _, style := range enrich.Categories() {
		categories = append(categories, categoryInfo{
			Name:  style.Display,
			Color: style.Color,
		})
	}

	jsonData, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func handleActions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	actions := []map[string]string{
		{"action": mailbox.ActionSend, "description": "Reply to the sender, or mark read and archive when no reply text is given"},
		{"action": mailbox.ActionMarkRead, "description": "Remove the unread flag"},
		{"action": mailbox.ActionArchive, "description": "Remove the message from the inbox"},
		{"action": mailbox.ActionDelete, "description": "Move the message to the trash"},
		{"action": mailbox.ActionUnsubscribe, "description": "Mark the message read after an unsubscribe"},
		{"action": mailbox.ActionSnooze, "description": "Hide the message from the listing until unsnoozed"},
		{"action": mailbox.ActionUnsnooze, "description": "Restore a snoozed message to the unread inbox"},
		{"action": mailbox.ActionForward, "description": "Forward the message to another address"},
		{"action": mailbox.ActionUnsnoozeBatch, "description": "Restore several snoozed messages, settling each independently"},
	}

	jsonData, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
