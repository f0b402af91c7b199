package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/inboxpilot/inboxpilot/internal/account"
	"github.com/inboxpilot/inboxpilot/internal/logging"
)

// Unsubscribe methods, in order of preference.
const (
	MethodOneClick = "one-click"
	MethodLink     = "link"
	MethodNone     = "none"
)

// UnsubscribeResult reports the outcome of the fallback chain. Success is
// true whenever the chain completed, even when no unsubscribe mechanism
// was found; only infrastructure failures (token resolution, message
// fetch) surface as errors.
type UnsubscribeResult struct {
	Success        bool   `json:"success"`
	Method         string `json:"method"`
	UnsubscribeURL string `json:"unsubscribeUrl,omitempty"`
	SenderEmail    string `json:"senderEmail"`
}

// Resolver implements header-based one-click unsubscribe (RFC 8058) with
// a body-link fallback chain.
type Resolver struct {
	connect    Factory
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResolver creates a Resolver using the given Mailbox factory.
func NewResolver(connect Factory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		connect: connect,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// WithHTTPClient overrides the HTTP client used for one-click POSTs.
func (r *Resolver) WithHTTPClient(c *http.Client) *Resolver {
	r.httpClient = c
	return r
}

// Resolve runs the fallback chain for one message:
//
//  1. one-click POST when List-Unsubscribe-Post advertises it and an
//     https URL is present in List-Unsubscribe
//  2. the https URL from List-Unsubscribe as a manual link
//  3. the first matching anchor in the message body
//  4. none
//
// Whatever the outcome, the message is marked read so it leaves the
// working set.
func (r *Resolver) Resolve(ctx context.Context, accounts []account.Account, messageID, accountEmail string) (*UnsubscribeResult, error) {
	tokens := account.Lookup(accounts, accountEmail)
	if tokens == nil {
		return nil, fmt.Errorf("%s: %w", accountEmail, ErrAccountNotFound)
	}
	mb, err := r.connect(ctx, account.Account{Email: accountEmail, Tokens: tokens})
	if err != nil {
		return nil, err
	}

	msg, err := mb.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	_, senderEmail := parseSender(HeaderValue(msg, "From"))
	listUnsubscribe := HeaderValue(msg, "List-Unsubscribe")
	listUnsubscribePost := HeaderValue(msg, "List-Unsubscribe-Post")

	result := &UnsubscribeResult{
		Success:     true,
		Method:      MethodNone,
		SenderEmail: senderEmail,
	}

	headerURL := findHTTPSURL(listUnsubscribe)

	// Step 1: RFC 8058 one-click.
	if headerURL != "" && supportsOneClick(listUnsubscribePost) {
		if err := r.postOneClick(ctx, headerURL); err == nil {
			result.Method = MethodOneClick
			result.UnsubscribeURL = headerURL
		} else {
			// Demote to a manual link; the URL stays a candidate.
			r.logger.Debug("one-click unsubscribe failed, demoting to link",
				logging.Operation("unsubscribe"), logging.Err(err))
			result.Method = MethodLink
			result.UnsubscribeURL = headerURL
		}
	}

	// Step 2: header URL as a manual link.
	if result.UnsubscribeURL == "" && headerURL != "" {
		result.Method = MethodLink
		result.UnsubscribeURL = headerURL
	}

	// Step 3: scan the message body for an unsubscribe-looking anchor.
	if result.UnsubscribeURL == "" {
		bodies := ExtractBodies(msg.Payload, msg.Snippet)
		if link := findBodyUnsubscribeLink(bodies.RawHTML); link != "" {
			result.Method = MethodLink
			result.UnsubscribeURL = link
		}
	}

	// Always mark read, regardless of outcome. Best effort: the result has
	// already been decided.
	if err := mb.Modify(ctx, messageID, nil, []string{LabelUnread}); err != nil {
		r.logger.Warn("failed to mark message read after unsubscribe",
			logging.Operation("unsubscribe"),
			slog.String("message_id", messageID),
			logging.Err(err))
	}

	return result, nil
}

// supportsOneClick reports whether List-Unsubscribe-Post advertises the
// RFC 8058 one-click contract.
func supportsOneClick(header string) bool {
	return strings.Contains(strings.ToLower(header), "list-unsubscribe=one-click")
}

// findHTTPSURL extracts the first https URL from a List-Unsubscribe
// header. The header is a comma-separated list of angle-bracketed URIs,
// typically mixing mailto and https entries.
func findHTTPSURL(header string) string {
	for _, entry := range parseListUnsubscribe(header) {
		if strings.HasPrefix(entry, "https://") {
			return entry
		}
	}
	return ""
}

// parseListUnsubscribe splits a List-Unsubscribe header into its URIs.
func parseListUnsubscribe(header string) []string {
	var uris []string
	for _, part := range strings.Split(header, "<") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		end := strings.Index(part, ">")
		if end == -1 {
			continue
		}
		uri := strings.TrimSpace(part[:end])
		if uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

// postOneClick performs the RFC 8058 POST. Any status below 400 counts as
// accepted.
func (r *Resolver) postOneClick(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		strings.NewReader("List-Unsubscribe=One-Click"))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "inboxpilot/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("one-click request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("one-click request rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Body-link patterns, in fixed priority order. The first pattern with any
// matching anchor wins.
var bodyLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)unsubscribe`),
	regexp.MustCompile(`(?i)opt[-_]?out`),
	regexp.MustCompile(`(?i)manage[-_]?preferences`),
	regexp.MustCompile(`(?i)email[-_]?preferences`),
	regexp.MustCompile(`(?i)remove`),
}

// findBodyUnsubscribeLink scans anchor hrefs in the HTML body for an
// unsubscribe-looking URL, honoring the pattern priority order.
func findBodyUnsubscribeLink(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	hrefs := extractAnchorHrefs(rawHTML)
	for _, pattern := range bodyLinkPatterns {
		for _, href := range hrefs {
			if pattern.MatchString(href) {
				return href
			}
		}
	}
	return ""
}

// extractAnchorHrefs collects http(s) anchor hrefs in document order.
func extractAnchorHrefs(rawHTML string) []string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var hrefs []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return hrefs
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if tok.Data != "a" {
			continue
		}
		for _, a := range tok.Attr {
			if strings.EqualFold(a.Key, "href") {
				val := strings.TrimSpace(a.Val)
				if strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://") {
					hrefs = append(hrefs, val)
				}
			}
		}
	}
}
