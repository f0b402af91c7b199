package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate markdown documentation for all MCP tools",
		Long: `Generate markdown documentation for all MCP tools provided by the server.

The documentation is generated from the registered tool definitions,
so it always matches the running server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Registration needs no credentials, accounts arrive per call.
	sc := server.NewServerContext(context.Background())
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAll(mcpSrv, sc); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running inboxpilot as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sb.WriteString("## Session State\n\n")
	sb.WriteString("All tools accept an opaque `accounts` argument carrying the caller's connected accounts. ")
	sb.WriteString("The server stores no credentials; whatever the client holds is passed with every call.\n\n")

	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
