package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/logging"
)

// The action vocabulary.
const (
	ActionSend          = "send"
	ActionMarkRead      = "mark_read"
	ActionArchive       = "archive"
	ActionDelete        = "delete"
	ActionUnsubscribe   = "unsubscribe"
	ActionSnooze        = "snooze"
	ActionUnsnooze      = "unsnooze"
	ActionForward       = "forward"
	ActionUnsnoozeBatch = "unsnooze_batch"
)

// SnoozeTarget identifies one snoozed message for the batch unsnooze.
type SnoozeTarget struct {
	EmailID string `json:"emailId"`
	Account string `json:"account"`
}

// ActionRequest carries one action invocation. Message is required for all
// actions except unsnooze_batch, which operates on SnoozeTargets.
type ActionRequest struct {
	Action        string
	Message       *Message
	ReplyText     string
	ForwardTo     string
	SnoozeTargets []SnoozeTarget
}

// ActionResult reports a completed action. Unsnoozed is only meaningful
// for unsnooze_batch.
type ActionResult struct {
	Action    string `json:"action"`
	Unsnoozed int    `json:"unsnoozed,omitempty"`
}

// Executor maps the action vocabulary onto provider label mutations.
// Every terminal action upholds the visibility contract: after it
// completes, IsVisible is false for the target message.
type Executor struct {
	connect Factory
	logger  *slog.Logger
}

// NewExecutor creates an Executor using the given Mailbox factory.
func NewExecutor(connect Factory, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{connect: connect, logger: logger}
}

// Perform executes one action. Validation failures return the sentinel
// errors in errors.go before any provider call is made; provider failures
// come back wrapped with the action name.
func (e *Executor) Perform(ctx context.Context, accounts []account.Account, req ActionRequest) (*ActionResult, error) {
	switch req.Action {
	case ActionSend, ActionMarkRead, ActionArchive, ActionDelete,
		ActionUnsubscribe, ActionSnooze, ActionUnsnooze, ActionForward:
		// Single-message actions, handled below.
	case ActionUnsnoozeBatch:
		n := e.unsnoozeBatch(ctx, accounts, req.SnoozeTargets)
		return &ActionResult{Action: req.Action, Unsnoozed: n}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	if req.Action == ActionForward && strings.TrimSpace(req.ForwardTo) == "" {
		return nil, ErrNoForwardAddress
	}
	if req.Message == nil {
		return nil, fmt.Errorf("%w: missing target message", ErrInvalidAction)
	}

	mb, err := e.resolve(ctx, accounts, req.Message.Account)
	if err != nil {
		return nil, err
	}

	if err := e.perform(ctx, mb, req); err != nil {
		return nil, fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	return &ActionResult{Action: req.Action}, nil
}

// resolve looks up the account's tokens and connects. A missing account is
// reported before any provider call.
func (e *Executor) resolve(ctx context.Context, accounts []account.Account, email string) (Mailbox, error) {
	tokens := account.Lookup(accounts, email)
	if tokens == nil {
		return nil, fmt.Errorf("%s: %w", email, ErrAccountNotFound)
	}
	return e.connect(ctx, account.Account{Email: email, Tokens: tokens})
}

func (e *Executor) perform(ctx context.Context, mb Mailbox, req ActionRequest) error {
	msg := req.Message
	switch req.Action {
	case ActionSend:
		if req.ReplyText != "" {
			if err := e.reply(ctx, mb, msg, req.ReplyText); err != nil {
				return err
			}
			return mb.Modify(ctx, msg.ID, nil, []string{LabelInbox})
		}
		// No reply text: mark read, then archive.
		if err := mb.Modify(ctx, msg.ID, nil, []string{LabelUnread}); err != nil {
			return err
		}
		return mb.Modify(ctx, msg.ID, nil, []string{LabelInbox})
	case ActionMarkRead:
		return mb.Modify(ctx, msg.ID, nil, []string{LabelUnread})
	case ActionArchive:
		return mb.Modify(ctx, msg.ID, nil, []string{LabelInbox})
	case ActionDelete:
		return mb.Trash(ctx, msg.ID)
	case ActionUnsubscribe:
		// The unsubscribe protocol itself is the Resolver's job; the action
		// only clears the unread flag.
		return mb.Modify(ctx, msg.ID, nil, []string{LabelUnread})
	case ActionSnooze:
		// Removing INBOX alone hides the message: the listing requires
		// INBOX and UNREAD together. UNREAD stays so unsnooze can restore
		// full visibility.
		return mb.Modify(ctx, msg.ID, nil, []string{LabelInbox})
	case ActionUnsnooze:
		return mb.Modify(ctx, msg.ID, []string{LabelInbox, LabelUnread}, nil)
	case ActionForward:
		return e.forward(ctx, mb, msg, req.ForwardTo)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
}

// reply sends a threaded reply to the message's sender.
func (e *Executor) reply(ctx context.Context, mb Mailbox, msg *Message, body string) error {
	orig, err := mb.Get(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("failed to get original message: %w", err)
	}
	origMessageID := HeaderValue(orig, "Message-ID")
	references := HeaderValue(orig, "References")
	if references != "" && origMessageID != "" {
		references = references + " " + origMessageID
	} else if origMessageID != "" {
		references = origMessageID
	}
	to := HeaderValue(orig, "From")
	if to == "" {
		to = msg.Email
	}

	_, err = mb.Send(ctx, &OutgoingMessage{
		To:         to,
		Subject:    replySubject(msg.Subject),
		Body:       body,
		ThreadID:   msg.ThreadID,
		InReplyTo:  origMessageID,
		References: references,
	})
	return err
}

// forward sends a copy of the message quoting sender, subject, and body.
func (e *Executor) forward(ctx context.Context, mb Mailbox, msg *Message, to string) error {
	var b strings.Builder
	b.WriteString("---------- Forwarded message ---------\n")
	fmt.Fprintf(&b, "From: %s <%s>\n", msg.From, msg.Email)
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	b.WriteString(msg.Body)

	_, err := mb.Send(ctx, &OutgoingMessage{
		To:      to,
		Subject: forwardSubject(msg.Subject),
		Body:    b.String(),
	})
	return err
}

// unsnoozeBatch restores INBOX and UNREAD on each target independently
// and concurrently. A failed pair never blocks the others; the return
// value is the count of successes.
func (e *Executor) unsnoozeBatch(ctx context.Context, accounts []account.Account, targets []SnoozeTarget) int {
	results := make([]bool, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target SnoozeTarget) {
			defer wg.Done()
			mb, err := e.resolve(ctx, accounts, target.Account)
			if err != nil {
				e.logger.Warn("unsnooze skipped",
					logging.Operation(ActionUnsnoozeBatch),
					slog.String("message_id", target.EmailID),
					logging.Err(err))
				return
			}
			if err := mb.Modify(ctx, target.EmailID, []string{LabelInbox, LabelUnread}, nil); err != nil {
				e.logger.Warn("unsnooze failed",
					logging.Operation(ActionUnsnoozeBatch),
					slog.String("message_id", target.EmailID),
					logging.Err(err))
				return
			}
			results[i] = true
		}(i, target)
	}
	wg.Wait()

	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}
