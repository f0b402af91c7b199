package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/enrich"
	"github.com/inboxpilot/inboxpilot/internal/logging"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

type triageOptions struct {
	debug        bool
	accountsFile string
	aiModel      string
	pageSize     int64
}

func newTriageCmd() *cobra.Command {
	opts := &triageOptions{}

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Fetch and enrich unread messages once, printing JSON",
		Long: `Fetch unread inbox messages for the given accounts, enrich them
with categories, summaries and reply drafts, and print the result as
JSON on stdout.

Accounts are read as an opaque base64url blob from --accounts-file, or
from the INBOXPILOT_ACCOUNTS environment variable when no file is
given. AI enrichment requires ANTHROPIC_API_KEY; otherwise heuristic
categorization is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.accountsFile, "accounts-file", "", "File containing the opaque accounts blob (default env INBOXPILOT_ACCOUNTS)")
	cmd.Flags().StringVar(&opts.aiModel, "ai-model", "", "Anthropic model used for enrichment")
	cmd.Flags().Int64Var(&opts.pageSize, "page-size", 0, "Unread messages fetched per account (default 20)")

	return cmd
}

// triageResult mirrors the list tool payload so one-shot runs and MCP
// clients see the same shape.
type triageResult struct {
	Messages []*mailbox.Message `json:"messages"`
	Accounts []account.Summary  `json:"accounts"`
}

func runTriage(opts *triageOptions) error {
	logger := logging.New(os.Stderr, opts.debug)
	slog.SetDefault(logger)

	blob, err := readAccountsBlob(opts.accountsFile)
	if err != nil {
		return err
	}
	accounts := account.Decode(blob)
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts found: provide a valid accounts blob")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := mailbox.NewFetcher(mailbox.Connect, logger)
	if opts.pageSize > 0 {
		fetcher = fetcher.WithPageSize(opts.pageSize)
	}
	msgs, err := fetcher.FetchUnread(ctx, accounts)
	if err != nil {
		return fmt.Errorf("failed to fetch unread messages: %w", err)
	}

	var client enrich.Client
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		client = enrich.NewAnthropicClient(apiKey, opts.aiModel)
	}
	msgs = enrich.NewPipeline(client, logger).Enrich(ctx, msgs)

	if msgs == nil {
		msgs = []*mailbox.Message{}
	}
	out, err := json.MarshalIndent(triageResult{
		Messages: msgs,
		Accounts: account.Summaries(accounts),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// readAccountsBlob loads the opaque accounts blob from a file, falling
// back to the INBOXPILOT_ACCOUNTS environment variable.
func readAccountsBlob(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read accounts file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if blob := os.Getenv("INBOXPILOT_ACCOUNTS"); blob != "" {
		return blob, nil
	}
	return "", fmt.Errorf("no accounts provided: use --accounts-file or set INBOXPILOT_ACCOUNTS")
}
