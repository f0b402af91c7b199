package inbox_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/server"
)

// RegisterInboxTools registers all inbox tools with the MCP server.
func RegisterInboxTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterListTools(s, sc); err != nil {
		return fmt.Errorf("failed to register list tools: %w", err)
	}

	if err := RegisterActionTools(s, sc); err != nil {
		return fmt.Errorf("failed to register action tools: %w", err)
	}

	if err := RegisterUnsubscribeTools(s, sc); err != nil {
		return fmt.Errorf("failed to register unsubscribe tools: %w", err)
	}

	return nil
}
