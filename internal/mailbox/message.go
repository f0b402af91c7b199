package mailbox

import (
	"net/mail"
	"strings"
	"time"
	"unicode"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	maxBodyChars    = 2000
	maxPreviewChars = 250
)

// Label names used by the visibility contract.
const (
	LabelInbox  = "INBOX"
	LabelUnread = "UNREAD"
)

// VisibilityQuery is the provider search expression matching exactly the
// messages IsVisible accepts. The two must stay in lockstep: every
// terminal action removes a label this query requires.
const VisibilityQuery = "in:inbox is:unread"

// IsVisible reports whether a message with the given labels belongs to the
// working set, i.e. would be returned by a listing under VisibilityQuery.
func IsVisible(labelIDs []string) bool {
	var inbox, unread bool
	for _, l := range labelIDs {
		switch l {
		case LabelInbox:
			inbox = true
		case LabelUnread:
			unread = true
		}
	}
	return inbox && unread
}

// SmartAction is one AI-suggested follow-up for a message.
type SmartAction struct {
	Type   string `json:"type"`
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

// Message is the normalized message entity. Identity is (ID, Account):
// provider ids are scoped per account, not globally unique. The enrichment
// fields past LabelIDs are populated by the enrichment pipeline.
type Message struct {
	ID        string   `json:"id"`
	ThreadID  string   `json:"threadId"`
	From      string   `json:"from"`
	Email     string   `json:"email"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	BodyHTML  string   `json:"bodyHtml"`
	Preview   string   `json:"preview"`
	Time      string   `json:"time"`
	Timestamp int64    `json:"timestamp"`
	Avatar    string   `json:"avatar"`
	LabelIDs  []string `json:"labelIds"`
	Account   string   `json:"account"`

	Category               string        `json:"category,omitempty"`
	Color                  string        `json:"color,omitempty"`
	Urgency                string        `json:"urgency,omitempty"`
	AIReply                *string       `json:"aiReply"`
	Summary                string        `json:"summary,omitempty"`
	SmartActions           []SmartAction `json:"smartActions,omitempty"`
	SuggestUnsubscribe     bool          `json:"suggestUnsubscribe"`
	PreviouslyUnsubscribed bool          `json:"previouslyUnsubscribed"`
}

// HeaderValue extracts a header value from a Gmail message payload.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// Normalize converts a raw provider message into the Message entity,
// tagging it with the owning account's address.
func Normalize(gm *gmail.Message, accountEmail string) *Message {
	if gm == nil {
		gm = &gmail.Message{}
	}

	from := HeaderValue(gm, "From")
	name, addr := parseSender(from)

	bodies := ExtractBodies(gm.Payload, gm.Snippet)
	body := truncateRunes(bodies.PlainText, maxBodyChars, "…")
	ts := gm.InternalDate

	return &Message{
		ID:        gm.Id,
		ThreadID:  gm.ThreadId,
		From:      name,
		Email:     addr,
		Subject:   HeaderValue(gm, "Subject"),
		Body:      body,
		BodyHTML:  bodies.SanitizedHTML,
		Preview:   truncateRunes(bodies.PlainText, maxPreviewChars, ""),
		Time:      timeLabel(ts),
		Timestamp: ts,
		Avatar:    initials(name, addr),
		LabelIDs:  gm.LabelIds,
		Account:   accountEmail,
	}
}

// parseSender splits a From header into display name and address. Falls
// back to the address local part when no display name is present.
func parseSender(from string) (name, addr string) {
	if from == "" {
		return "Unknown", ""
	}
	parsed, err := mail.ParseAddress(from)
	if err != nil {
		return strings.Trim(from, `"<> `), strings.Trim(from, `"<> `)
	}
	addr = parsed.Address
	name = parsed.Name
	if name == "" {
		if at := strings.Index(addr, "@"); at > 0 {
			name = addr[:at]
		} else {
			name = addr
		}
	}
	return name, addr
}

// truncateRunes cuts s to at most n runes, appending the suffix only when
// something was cut.
func truncateRunes(s string, n int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + suffix
}

// timeLabel renders an epoch-ms timestamp as a short human label: clock
// time for messages from today, month and day otherwise.
func timeLabel(epochMS int64) string {
	if epochMS == 0 {
		return ""
	}
	t := time.UnixMilli(epochMS)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("3:04 PM")
	}
	return t.Format("Jan 2")
}

// initials builds the 2-letter avatar from the display name, falling back
// to the address.
func initials(name, addr string) string {
	src := strings.TrimSpace(name)
	if src == "" {
		src = addr
	}
	if src == "" {
		return "??"
	}
	words := strings.FieldsFunc(src, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	switch {
	case len(words) >= 2:
		return strings.ToUpper(firstRune(words[0]) + firstRune(words[1]))
	case len(words) == 1 && len([]rune(words[0])) >= 2:
		r := []rune(words[0])
		return strings.ToUpper(string(r[:2]))
	case len(words) == 1:
		return strings.ToUpper(words[0])
	default:
		return "??"
	}
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
