package inbox_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
	"github.com/inboxpilot/inboxpilot/internal/server"
)

// fakeMailbox is an in-memory Mailbox keyed by message id.
type fakeMailbox struct {
	mu       sync.Mutex
	labels   map[string][]string
	messages map[string]*gmail.Message
	sent     []*mailbox.OutgoingMessage
	trashed  []string

	modifyErr error
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		labels:   make(map[string][]string),
		messages: make(map[string]*gmail.Message),
	}
}

// seed adds a visible (INBOX+UNREAD) message with the given headers.
func (f *fakeMailbox) seed(id, from, subject string) {
	f.labels[id] = []string{mailbox.LabelInbox, mailbox.LabelUnread}
	f.messages[id] = &gmail.Message{
		Id:       id,
		ThreadId: "t-" + id,
		LabelIds: []string{mailbox.LabelInbox, mailbox.LabelUnread},
		Snippet:  "snippet for " + id,
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 -0700"},
			},
			Body: &gmail.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte("body of " + id)),
			},
		},
	}
}

func (f *fakeMailbox) ListVisible(ctx context.Context, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, labels := range f.labels {
		if mailbox.IsVisible(labels) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeMailbox) Get(ctx context.Context, id string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeMailbox) Modify(ctx context.Context, id string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modifyErr != nil {
		return f.modifyErr
	}
	labels := f.labels[id]
	var kept []string
	for _, l := range labels {
		removed := false
		for _, r := range remove {
			if l == r {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, l)
		}
	}
	for _, a := range add {
		present := false
		for _, l := range kept {
			if l == a {
				present = true
				break
			}
		}
		if !present {
			kept = append(kept, a)
		}
	}
	f.labels[id] = kept
	return nil
}

func (f *fakeMailbox) Trash(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trashed = append(f.trashed, id)
	delete(f.labels, id)
	return nil
}

func (f *fakeMailbox) Send(ctx context.Context, out *mailbox.OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, out)
	return fmt.Sprintf("sent-%d", len(f.sent)), nil
}

// fakeFactory hands out one fakeMailbox per account email.
type fakeFactory struct {
	mu       sync.Mutex
	boxes    map[string]*fakeMailbox
	connects int
	err      error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{boxes: make(map[string]*fakeMailbox)}
}

func (f *fakeFactory) box(email string) *fakeMailbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	mb, ok := f.boxes[email]
	if !ok {
		mb = newFakeMailbox()
		f.boxes[email] = mb
	}
	return mb
}

func (f *fakeFactory) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeFactory) factory() mailbox.Factory {
	return func(ctx context.Context, acct account.Account) (mailbox.Mailbox, error) {
		f.mu.Lock()
		f.connects++
		err := f.err
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return f.box(acct.Email), nil
	}
}

// fakeEnricher returns a fixed completion for every prompt.
type fakeEnricher struct {
	response string
	err      error
}

func (f *fakeEnricher) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func encodedAccounts(emails ...string) string {
	var accounts []account.Account
	for _, email := range emails {
		accounts = append(accounts, account.Account{
			Email:  email,
			Name:   email,
			Tokens: account.Tokens{"access": "tok-" + email},
		})
	}
	return account.Encode(accounts)
}

func requestWithArgs(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func testServerContext(t *testing.T, factory *fakeFactory, opts ...server.Option) *server.ServerContext {
	t.Helper()
	opts = append([]server.Option{server.WithMailboxFactory(factory.factory())}, opts...)
	sc := server.NewServerContext(context.Background(), opts...)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
