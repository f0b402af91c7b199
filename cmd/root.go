package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxpilot application
var rootCmd = &cobra.Command{
	Use:   "inboxpilot",
	Short: "Inbox triage tools for AI assistants",
	Long: `inboxpilot fetches unread inbox messages, enriches them with
AI-assigned categories, summaries and reply drafts, and carries out
triage actions such as archiving, snoozing and unsubscribing.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A one-shot triage run that prints the enriched inbox as JSON`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxpilot version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTriageCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
