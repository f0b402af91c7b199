package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/inboxpilot/inboxpilot/internal/logging"
	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

// BatchSize is the number of messages enriched concurrently at a time.
const BatchSize = 5

// maxPromptBodyChars caps how much of the message body is sent to the
// model per message.
const maxPromptBodyChars = 1500

// urgencyRank orders messages for the final sort. Unknown values never
// reach the sort: anything outside the enum triggers the fallback.
var urgencyRank = map[string]int{"high": 0, "medium": 1, "low": 2}

// Enrichment outcome labels reported to the Recorder.
const (
	ResultAI       = "ai"
	ResultFallback = "fallback"
)

// Recorder receives per-message enrichment outcome counts. It is
// satisfied by instrumentation.Metrics.
type Recorder interface {
	RecordEnrichment(ctx context.Context, result string, count int)
}

// Pipeline classifies messages in batches, applying a deterministic
// fallback for any message whose AI call fails.
type Pipeline struct {
	client    Client
	logger    *slog.Logger
	batchSize int
	recorder  Recorder
}

// NewPipeline creates a pipeline using the given completion client.
func NewPipeline(client Client, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		client:    client,
		logger:    logger,
		batchSize: BatchSize,
	}
}

// WithRecorder sets an optional recorder for enrichment outcomes.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// aiResult is the JSON object the model is asked to produce per message.
type aiResult struct {
	Category           string                `json:"category"`
	Urgency            string                `json:"urgency"`
	NeedsReply         bool                  `json:"needs_reply"`
	AIReply            string                `json:"ai_reply"`
	Summary            string                `json:"summary"`
	SuggestUnsubscribe bool                  `json:"suggest_unsubscribe"`
	SmartActions       []mailbox.SmartAction `json:"smart_actions"`
}

// Enrich classifies every message in place and returns the list sorted
// by urgency, high first. Relative order within an urgency level is
// preserved. An empty input makes no AI calls.
func (p *Pipeline) Enrich(ctx context.Context, msgs []*mailbox.Message) []*mailbox.Message {
	if len(msgs) == 0 {
		return msgs
	}

	for start := 0; start < len(msgs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}

		var wg sync.WaitGroup
		for _, msg := range msgs[start:end] {
			wg.Add(1)
			go func(m *mailbox.Message) {
				defer wg.Done()
				p.enrichOne(ctx, m)
			}(msg)
		}
		wg.Wait()
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return urgencyRank[msgs[i].Urgency] < urgencyRank[msgs[j].Urgency]
	})
	return msgs
}

// enrichOne classifies a single message, degrading to the fallback on
// any failure.
func (p *Pipeline) enrichOne(ctx context.Context, msg *mailbox.Message) {
	if p.client == nil {
		p.fallback(ctx, msg)
		return
	}

	raw, err := p.client.Complete(ctx, buildPrompt(msg))
	if err != nil {
		p.logger.Warn("enrichment call failed, using fallback",
			logging.Err(err),
			slog.String("message_id", msg.ID))
		p.fallback(ctx, msg)
		return
	}

	payload, ok := extractJSON(raw)
	if !ok {
		p.logger.Warn("enrichment returned no JSON, using fallback",
			slog.String("message_id", msg.ID))
		p.fallback(ctx, msg)
		return
	}

	var res aiResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		p.logger.Warn("enrichment JSON malformed, using fallback",
			logging.Err(err),
			slog.String("message_id", msg.ID))
		p.fallback(ctx, msg)
		return
	}

	urgency := strings.ToLower(strings.TrimSpace(res.Urgency))
	if _, valid := urgencyRank[urgency]; !valid {
		p.logger.Warn("enrichment urgency outside enum, using fallback",
			slog.String("message_id", msg.ID),
			slog.String("urgency", res.Urgency))
		p.fallback(ctx, msg)
		return
	}

	style := styleFor(res.Category)
	msg.Category = style.Display
	msg.Color = style.Color
	msg.Urgency = urgency
	msg.SuggestUnsubscribe = res.SuggestUnsubscribe

	msg.Summary = strings.TrimSpace(res.Summary)
	if msg.Summary == "" {
		msg.Summary = msg.Preview
	}

	// A reply suggestion only exists when the model says one is needed.
	msg.AIReply = nil
	if res.NeedsReply && strings.TrimSpace(res.AIReply) != "" {
		reply := strings.TrimSpace(res.AIReply)
		msg.AIReply = &reply
	}

	msg.SmartActions = res.SmartActions
	if msg.SmartActions == nil {
		msg.SmartActions = []mailbox.SmartAction{}
	}
	p.record(ctx, ResultAI)
}

// fallback applies the deterministic values and records the outcome.
func (p *Pipeline) fallback(ctx context.Context, msg *mailbox.Message) {
	applyFallback(msg)
	p.record(ctx, ResultFallback)
}

func (p *Pipeline) record(ctx context.Context, result string) {
	if p.recorder != nil {
		p.recorder.RecordEnrichment(ctx, result, 1)
	}
}

// applyFallback fills deterministic neutral values for a message whose
// AI call failed.
func applyFallback(msg *mailbox.Message) {
	msg.Category = categoryStyles["other"].Display
	msg.Color = neutralColor
	msg.Urgency = "low"
	msg.AIReply = nil
	msg.Summary = msg.Preview
	msg.SmartActions = []mailbox.SmartAction{}
	msg.SuggestUnsubscribe = false
}

// buildPrompt renders the single-message classification prompt.
func buildPrompt(msg *mailbox.Message) string {
	body := msg.Body
	if len(body) > maxPromptBodyChars {
		body = body[:maxPromptBodyChars]
	}

	var b strings.Builder
	b.WriteString("You are an email triage assistant. Classify the email below and respond with a single JSON object, no other text.\n\n")
	b.WriteString("The JSON object must have exactly these fields:\n")
	fmt.Fprintf(&b, "- category: one of %s\n", strings.Join(categoryNames, ", "))
	b.WriteString("- urgency: one of high, medium, low\n")
	b.WriteString("- needs_reply: boolean, true only if the sender expects a personal response\n")
	b.WriteString("- ai_reply: a short draft reply if needs_reply is true, otherwise an empty string\n")
	b.WriteString("- summary: one sentence summarizing the email\n")
	b.WriteString("- suggest_unsubscribe: boolean, true for bulk mail the user likely wants to stop receiving\n")
	b.WriteString("- smart_actions: array of objects with fields type, label, detail; may be empty\n\n")
	fmt.Fprintf(&b, "From: %s <%s>\n", msg.From, msg.Email)
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	b.WriteString(body)
	return b.String()
}

// extractJSON returns the first balanced top-level JSON object in s.
// Models often wrap output in prose or code fences; everything outside
// the braces is ignored.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
