package mailbox

import (
	"context"
	"log/slog"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/logging"
)

// DefaultPageSize is the per-account listing limit for a fetch.
const DefaultPageSize = 20

// Fetcher lists and retrieves the working set of messages across all
// connected accounts.
//
// Accounts are visited sequentially in list order, and messages within an
// account are fetched sequentially. Failure handling is tiered: a failed
// message fetch is logged and skipped, a non-auth account failure
// contributes zero messages and iteration continues, and an auth failure
// aborts the whole fetch with an *AuthError so the caller can demand
// re-authentication.
type Fetcher struct {
	connect  Factory
	logger   *slog.Logger
	pageSize int64
}

// NewFetcher creates a Fetcher using the given Mailbox factory.
func NewFetcher(connect Factory, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		connect:  connect,
		logger:   logger,
		pageSize: DefaultPageSize,
	}
}

// WithPageSize overrides the per-account listing limit.
func (f *Fetcher) WithPageSize(n int64) *Fetcher {
	if n > 0 {
		f.pageSize = n
	}
	return f
}

// FetchUnread returns the normalized messages visible in each account's
// working set, flat and unsorted across accounts.
func (f *Fetcher) FetchUnread(ctx context.Context, accounts []account.Account) ([]*Message, error) {
	var all []*Message
	for _, acct := range accounts {
		logger := logging.WithAccount(f.logger, logging.AnonymizeEmail(acct.Email))

		msgs, err := f.fetchAccount(ctx, acct, logger)
		if err != nil {
			if IsAuthFailure(err) {
				return nil, &AuthError{Account: acct.Email, Err: err}
			}
			logger.Warn("account fetch failed, skipping",
				logging.Operation("fetch_unread"), logging.Err(err))
			continue
		}
		all = append(all, msgs...)
	}
	return all, nil
}

func (f *Fetcher) fetchAccount(ctx context.Context, acct account.Account, logger *slog.Logger) ([]*Message, error) {
	mb, err := f.connect(ctx, acct)
	if err != nil {
		return nil, err
	}

	ids, err := mb.ListVisible(ctx, f.pageSize)
	if err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(ids))
	for _, id := range ids {
		gm, err := mb.Get(ctx, id)
		if err != nil {
			// One bad message must not sink the account.
			logger.Warn("message fetch failed, skipping",
				logging.Operation("fetch_message"), slog.String("message_id", id), logging.Err(err))
			continue
		}
		msgs = append(msgs, Normalize(gm, acct.Email))
	}

	logger.Debug("fetched account working set",
		logging.Operation("fetch_unread"),
		slog.Int("listed", len(ids)),
		slog.Int("fetched", len(msgs)))
	return msgs, nil
}
