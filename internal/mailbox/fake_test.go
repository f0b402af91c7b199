package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/inboxpilot/inboxpilot/internal/account"
)

// fakeMailbox is an in-memory Mailbox tracking labels per message id.
type fakeMailbox struct {
	mu       sync.Mutex
	labels   map[string][]string
	messages map[string]*gmail.Message
	sent     []*OutgoingMessage
	trashed  []string

	listErr   error
	getErr    error
	modifyErr error
	trashErr  error
	sendErr   error
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		labels:   make(map[string][]string),
		messages: make(map[string]*gmail.Message),
	}
}

// addVisible seeds a message carrying both visibility labels.
func (f *fakeMailbox) addVisible(id string, msg *gmail.Message) {
	f.labels[id] = []string{LabelInbox, LabelUnread}
	if msg == nil {
		msg = &gmail.Message{Id: id, LabelIds: f.labels[id]}
	}
	f.messages[id] = msg
}

func (f *fakeMailbox) ListVisible(_ context.Context, max int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var ids []string
	for id, labels := range f.labels {
		if IsVisible(labels) {
			ids = append(ids, id)
		}
		if int64(len(ids)) >= max {
			break
		}
	}
	return ids, nil
}

func (f *fakeMailbox) Get(_ context.Context, id string) (*gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeMailbox) Modify(_ context.Context, id string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modifyErr != nil {
		return f.modifyErr
	}
	current := f.labels[id]
	for _, r := range remove {
		out := current[:0]
		for _, l := range current {
			if l != r {
				out = append(out, l)
			}
		}
		current = out
	}
	for _, a := range add {
		present := false
		for _, l := range current {
			if l == a {
				present = true
			}
		}
		if !present {
			current = append(current, a)
		}
	}
	f.labels[id] = current
	return nil
}

func (f *fakeMailbox) Trash(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trashErr != nil {
		return f.trashErr
	}
	f.trashed = append(f.trashed, id)
	delete(f.labels, id)
	return nil
}

func (f *fakeMailbox) Send(_ context.Context, out *OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, out)
	return fmt.Sprintf("sent-%d", len(f.sent)), nil
}

func (f *fakeMailbox) labelsFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.labels[id]...)
}

// fakeFactory serves one fakeMailbox per account email and counts
// connections.
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

func (f *fakeFactory) factory() Factory {
	return func(_ context.Context, acct account.Account) (Mailbox, error) {
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

func (f *fakeFactory) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAccounts(emails ...string) []account.Account {
	accts := make([]account.Account, len(emails))
	for i, email := range emails {
		accts[i] = account.Account{
			Email:  email,
			Tokens: account.Tokens{"access": "tok-" + email},
		}
	}
	return accts
}
