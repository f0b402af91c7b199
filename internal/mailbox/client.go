package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxpilot/inboxpilot/internal/account"
)

// Mailbox is the subset of provider operations the pipeline needs. The
// concrete implementation is Client; tests substitute fakes.
type Mailbox interface {
	// ListVisible returns up to max message ids matching the visibility
	// predicate (INBOX and UNREAD).
	ListVisible(ctx context.Context, max int64) ([]string, error)

	// Get retrieves one full message.
	Get(ctx context.Context, id string) (*gmail.Message, error)

	// Modify adds and removes labels on a message.
	Modify(ctx context.Context, id string, add, remove []string) error

	// Trash moves a message to the trash.
	Trash(ctx context.Context, id string) error

	// Send submits an outgoing message and returns its id.
	Send(ctx context.Context, out *OutgoingMessage) (string, error)
}

// Factory builds a Mailbox for one account. The default factory is
// Connect; tests inject fakes.
type Factory func(ctx context.Context, acct account.Account) (Mailbox, error)

// OutgoingMessage describes a message to be sent, optionally threaded
// onto an existing conversation.
type OutgoingMessage struct {
	To         string
	Subject    string
	Body       string
	ThreadID   string
	InReplyTo  string
	References string
}

// Client implements Mailbox against the Gmail API.
type Client struct {
	svc     *gmail.UsersService
	account string
}

// Connect builds a Gmail client from the account's stored tokens. Tokens
// are caller-supplied request state, so the token source is static: no
// refresh happens server-side.
func Connect(ctx context.Context, acct account.Account) (Mailbox, error) {
	if acct.Tokens.Access() == "" {
		return nil, fmt.Errorf("no access token for %s: %w", acct.Email, ErrAccountNotFound)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  acct.Tokens.Access(),
		RefreshToken: acct.Tokens.Refresh(),
		TokenType:    "Bearer",
	})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service for %s: %w", acct.Email, err)
	}
	return &Client{svc: svc.Users, account: acct.Email}, nil
}

// Account returns the account email this client is associated with.
func (c *Client) Account() string {
	return c.account
}

// ListVisible lists message ids in the working set, up to max.
func (c *Client) ListVisible(ctx context.Context, max int64) ([]string, error) {
	res, err := c.svc.Messages.List("me").
		Q(VisibilityQuery).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// Get retrieves a full message.
func (c *Client) Get(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}

// Modify applies label changes to a message.
func (c *Client) Modify(ctx context.Context, id string, add, remove []string) error {
	_, err := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	return err
}

// Trash moves a message to the trash.
func (c *Client) Trash(ctx context.Context, id string) error {
	_, err := c.svc.Messages.Trash("me", id).Context(ctx).Do()
	return err
}

// Send builds the RFC 2822 payload for out and submits it.
func (c *Client) Send(ctx context.Context, out *OutgoingMessage) (string, error) {
	if out.To == "" {
		return "", fmt.Errorf("at least one recipient is required")
	}
	raw := buildRFC2822(out)
	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: out.ThreadID,
	}
	sent, err := c.svc.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return sent.Id, nil
}

// buildRFC2822 assembles the wire form of an outgoing message.
func buildRFC2822(out *OutgoingMessage) string {
	var b strings.Builder
	b.WriteString("To: ")
	b.WriteString(out.To)
	b.WriteString("\r\n")
	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(out.Subject))
	b.WriteString("\r\n")
	if out.InReplyTo != "" {
		b.WriteString("In-Reply-To: ")
		b.WriteString(out.InReplyTo)
		b.WriteString("\r\n")
	}
	if out.References != "" {
		b.WriteString("References: ")
		b.WriteString(out.References)
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(out.Body)
	return b.String()
}

// encodeRFC2047 encodes a header value for non-ASCII characters.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// replySubject prefixes "Re: " unless already present.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// forwardSubject prefixes "Fwd: " unless already present.
func forwardSubject(subject string) string {
	lower := strings.ToLower(subject)
	if strings.HasPrefix(lower, "fwd:") || strings.HasPrefix(lower, "fw:") {
		return subject
	}
	return "Fwd: " + subject
}
