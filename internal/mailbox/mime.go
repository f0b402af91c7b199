package mailbox

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	gmail "google.golang.org/api/gmail/v1"
)

// maxPartDepth bounds the MIME tree walk. Provider trees are rarely more
// than three or four levels deep; anything past this is adversarial
// nesting and is truncated rather than followed.
const maxPartDepth = 20

// Bodies holds the normalized representations extracted from a message's
// MIME tree.
type Bodies struct {
	// PlainText is the plain-text rendition of the message body.
	PlainText string

	// SanitizedHTML is the cleaned HTML body, empty if no HTML part exists.
	SanitizedHTML string

	// RawHTML is the decoded HTML part before sanitization. Used internally
	// for the unsubscribe body-link scan; never returned to callers.
	RawHTML string
}

// ExtractBodies walks the message payload depth-first and produces the
// plain-text and sanitized-HTML bodies. The first text/html part found
// wins for HTML; the first text/plain part is the plain fallback when no
// HTML exists. If both extractions come up empty the provider's snippet
// is used. Never fails, for any input.
func ExtractBodies(payload *gmail.MessagePart, snippet string) Bodies {
	htmlData := findPartData(payload, "text/html")
	plainData := findPartData(payload, "text/plain")

	var b Bodies
	if htmlData != "" {
		b.RawHTML = decodePartData(htmlData)
		b.SanitizedHTML = SanitizeHTML(b.RawHTML)
		b.PlainText = StripHTML(b.RawHTML)
	}
	if b.PlainText == "" && plainData != "" {
		b.PlainText = strings.TrimSpace(decodePartData(plainData))
	}
	if b.PlainText == "" && b.SanitizedHTML == "" {
		b.PlainText = strings.TrimSpace(snippet)
	}
	return b
}

// findPartData returns the base64 data of the first part whose MIME type
// matches, in depth-first order, stopping at the depth limit.
func findPartData(payload *gmail.MessagePart, mimeType string) string {
	if payload == nil {
		return ""
	}
	type frame struct {
		part  *gmail.MessagePart
		depth int
	}
	stack := []frame{{payload, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.part == nil || f.depth > maxPartDepth {
			continue
		}
		if strings.HasPrefix(f.part.MimeType, mimeType) && f.part.Body != nil && f.part.Body.Data != "" {
			return f.part.Body.Data
		}
		// Push children reversed so they pop in document order.
		for i := len(f.part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.part.Parts[i], f.depth + 1})
		}
	}
	return ""
}

// decodePartData decodes Gmail's base64url part data, falling back to
// standard base64 for senders that pad. Undecodable data yields "".
func decodePartData(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// Elements whose entire subtree is removed during sanitization.
var droppedElements = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
	"iframe": true, "object": true, "embed": true, "applet": true,
	"form": true, "select": true, "textarea": true, "button": true,
	"noscript": true,
}

// Void elements never produce an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// SanitizeHTML removes executable and interactive content from untrusted
// sender HTML in a single tokenizer pass: script/style/head subtrees,
// frames and plugins, form controls, on* handler attributes and
// javascript: URLs are all dropped; 1x1 tracking pixels disappear; every
// surviving anchor is rewritten to open in a new browsing context with no
// opener reference. The output contains no executable script or handler.
// This is a best-effort filter for display purposes, not a substitute for
// a browser sandbox.
func SanitizeHTML(in string) string {
	if in == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(in))
	var out strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		name := tok.Data

		if skipDepth > 0 {
			switch tt {
			case html.StartTagToken:
				if !voidElements[name] {
					skipDepth++
				}
			case html.EndTagToken:
				skipDepth--
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if name == "input" {
				continue
			}
			if droppedElements[name] {
				if tt == html.StartTagToken && !voidElements[name] {
					skipDepth = 1
				}
				continue
			}
			if name == "img" && isTrackingPixel(tok.Attr) {
				continue
			}
			writeTag(&out, tok, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			if droppedElements[name] || name == "input" {
				continue
			}
			out.WriteString("</")
			out.WriteString(name)
			out.WriteString(">")
		case html.TextToken:
			out.WriteString(html.EscapeString(tok.Data))
		}
		// Comments and doctypes are dropped.
	}
	return out.String()
}

// writeTag serializes a start tag with its attributes filtered.
func writeTag(out *strings.Builder, tok html.Token, selfClosing bool) {
	out.WriteString("<")
	out.WriteString(tok.Data)
	for _, a := range filterAttrs(tok.Data, tok.Attr) {
		out.WriteString(" ")
		out.WriteString(a.Key)
		out.WriteString(`="`)
		out.WriteString(html.EscapeString(a.Val))
		out.WriteString(`"`)
	}
	if selfClosing {
		out.WriteString("/")
	}
	out.WriteString(">")
}

// filterAttrs drops event handlers and script URLs, and applies the
// noopener contract to anchors.
func filterAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	out := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if (key == "href" || key == "src" || key == "action" || key == "formaction") && isScriptURL(a.Val) {
			continue
		}
		if tag == "a" && (key == "target" || key == "rel") {
			continue
		}
		out = append(out, html.Attribute{Key: key, Val: a.Val})
	}
	if tag == "a" {
		out = append(out,
			html.Attribute{Key: "target", Val: "_blank"},
			html.Attribute{Key: "rel", Val: "noopener noreferrer"},
		)
	}
	return out
}

// isScriptURL reports whether a URL value resolves to the javascript:
// scheme, ignoring the whitespace and control characters browsers strip.
func isScriptURL(val string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, val)
	return strings.HasPrefix(strings.ToLower(cleaned), "javascript:")
}

func isTrackingPixel(attrs []html.Attribute) bool {
	var w, h string
	for _, a := range attrs {
		switch strings.ToLower(a.Key) {
		case "width":
			w = strings.TrimSpace(a.Val)
		case "height":
			h = strings.TrimSpace(a.Val)
		}
	}
	return (w == "1" || w == "1px") && (h == "1" || h == "1px")
}

// Elements that terminate a line of text when converting HTML to plain text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"tr": true, "table": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true, "pre": true,
	"section": true, "article": true, "header": true, "footer": true,
	"hr": true,
}

var (
	urlOnlyLine   = regexp.MustCompile(`^(?:https?://\S+|www\.\S+)$`)
	bannerLine    = regexp.MustCompile(`(?i)^(?:>+\s*)?(?:on .{0,200}wrote:|begin forwarded message:?|-{2,}\s*(?:original message|forwarded message)[\s-]*)$`)
	separatorRun  = regexp.MustCompile(`^[\s\-_=*]+$`)
	excessNewline = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts HTML to readable plain text: comments and
// script/style/head content are discarded, block boundaries and <br>
// become newlines, remaining tags vanish, and character references decode.
// Lines that are only URLs, forward/reply banners, or separator runs are
// dropped; runs of blank lines collapse to one. Never fails, including on
// malformed or truncated HTML.
func StripHTML(in string) string {
	if in == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(in))
	var raw strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		name := tok.Data

		if skipDepth > 0 {
			switch tt {
			case html.StartTagToken:
				if !voidElements[name] {
					skipDepth++
				}
			case html.EndTagToken:
				skipDepth--
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedElements[name] {
				if tt == html.StartTagToken && !voidElements[name] {
					skipDepth = 1
				}
				continue
			}
			if blockElements[name] {
				raw.WriteString("\n")
			}
		case html.EndTagToken:
			if blockElements[name] {
				raw.WriteString("\n")
			}
		case html.TextToken:
			// The tokenizer has already decoded named, numeric, and hex
			// character references here.
			raw.WriteString(tok.Data)
		}
	}

	return cleanPlainText(raw.String())
}

// cleanPlainText applies the line-level filters shared by StripHTML.
func cleanPlainText(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			if urlOnlyLine.MatchString(line) || bannerLine.MatchString(line) {
				continue
			}
			if len(line) >= 2 && separatorRun.MatchString(line) {
				continue
			}
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	out = excessNewline.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
