// Package intent classifies one user utterance into service, booking or qna.
// Classification is tiered: a deterministic keyword scorer always works, and
// a text-generation collaborator refines it with confidence and an optional
// clarification question when configured. Collaborator failures never fail
// the turn.
package intent

import (
	"context"
	"strings"
	"time"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/internal/llmjson"
	"github.com/tripwise/concierge/internal/prompt"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
)

// Keyword tiers checked in strict order. Information-request indicators win
// over everything: "what time does X open" mentions a place but is still a
// question.
var (
	infoRequestKeywords = []string{
		"là gì", "nghĩa là", "tại sao", "vì sao", "như thế nào", "thế nào",
		"giờ mở cửa", "mấy giờ mở", "có gì",
		"what is", "what's", "why", "how do", "how does", "tell me about",
		"opening hours", "what time does",
	}
	bookingKeywords = []string{
		"đặt", "đặt bàn", "đặt chỗ", "đặt tour", "đặt vé", "đặt phòng",
		"thanh toán", "giá",
		"book", "reserve", "booking", "reservation", "book tour",
		"book ticket", "book room", "payment", "price",
	}
	serviceKeywords = []string{
		"nhà hàng", "quán ăn", "địa điểm", "tìm", "khám phá", "địa chỉ",
		"ở đâu", "gần đây", "khuyến mãi", "gợi ý",
		"restaurant", "place", "search", "explore", "address", "where",
		"nearby", "promotion", "suggest", "find",
	}
	qnaKeywords = []string{
		"hỏi", "tư vấn", "thông tin", "cho mình biết",
		"ask", "advice", "information", "question",
	}
)

// Context bundles the session memory handed to the collaborator tier.
type Context struct {
	Recent   []core.Turn
	Entities core.EntityMap
	Language core.Language
}

// Classifier is the tiered intent classifier.
type Classifier struct {
	generator model.Generator
	logger    logging.Logger
	window    int
}

// Options configure a Classifier.
type Options struct {
	// Generator is the optional text-generation collaborator. Nil or
	// unconfigured means keyword-only classification.
	Generator model.Generator
	Logger    logging.Logger
	// RecentWindow is how many turns the collaborator prompt includes.
	RecentWindow int
}

// NewClassifier constructs a Classifier.
func NewClassifier(optFns ...func(o *Options)) *Classifier {
	opts := Options{Logger: logging.NoOpLogger{}, RecentWindow: 6}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Classifier{generator: opts.Generator, logger: opts.Logger, window: opts.RecentWindow}
}

// Classify returns the intent of message. The collaborator tier is consulted
// when available; any failure or unparsable output falls back to keywords.
func (c *Classifier) Classify(ctx context.Context, message string, sctx Context) core.IntentResult {
	if c.generator != nil && c.generator.IsConfigured() {
		if res, ok := c.classifyWithCollaborator(ctx, message, sctx); ok {
			return res
		}
	}
	return c.classifyKeywords(message)
}

// classifyKeywords is the deterministic tier. Ordered checks: explicit
// information requests beat booking, booking beats service, and anything
// unmatched is qna.
func (c *Classifier) classifyKeywords(message string) core.IntentResult {
	m := strings.ToLower(message)
	switch {
	case containsAny(m, infoRequestKeywords):
		return keywordResult(core.IntentQnA, "information request indicator")
	case containsAny(m, bookingKeywords):
		return keywordResult(core.IntentBooking, "booking keyword")
	case containsAny(m, serviceKeywords):
		return keywordResult(core.IntentService, "service keyword")
	case containsAny(m, qnaKeywords):
		return keywordResult(core.IntentQnA, "qna keyword")
	default:
		return keywordResult(core.IntentQnA, "no keyword matched")
	}
}

func keywordResult(i core.Intent, reason string) core.IntentResult {
	return core.IntentResult{Intent: i, Confidence: core.ConfidenceMedium, Reasoning: reason}
}

const classifyTemplate = `You are an intent classifier for a travel concierge.
Classify the user's latest message into exactly one of:
- "service": the user wants to discover or explore places (restaurants, tours, hotels)
- "booking": the user wants to reserve, order or pay for something
- "qna": the user asks for general information or advice, or the intent is unclear

Conversation so far:
{{.history}}

Known context: current_place={{.current_place}} current_topic={{.current_topic}} booking_active={{.booking_active}}

Latest user message: "{{.message}}"

Return a single JSON object, no extra text:
{"intent": "service|booking|qna", "confidence": "high|medium|low", "reasoning": "...", "clarification_question": "..." }
Set clarification_question to "" unless confidence is low.`

type classifyPayload struct {
	Intent        string `json:"intent"`
	Confidence    string `json:"confidence"`
	Reasoning     string `json:"reasoning"`
	Clarification string `json:"clarification_question"`
}

func (c *Classifier) classifyWithCollaborator(ctx context.Context, message string, sctx Context) (core.IntentResult, bool) {
	p, err := prompt.Render(classifyTemplate, map[string]any{
		"history":        renderHistory(sctx.Recent, c.window),
		"current_place":  sctx.Entities.CurrentPlace,
		"current_topic":  sctx.Entities.CurrentTopic,
		"booking_active": sctx.Entities.Booking.Active(),
		"message":        message,
	})
	if err != nil {
		return core.IntentResult{}, false
	}

	start := time.Now()
	raw, err := c.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 200, Temperature: 0.1})
	if err != nil || raw == "" {
		c.logger.Debug("intent collaborator unavailable, using keywords", "error", err)
		return core.IntentResult{}, false
	}
	c.logger.Debug("intent collaborator answered", "duration", time.Since(start))

	var payload classifyPayload
	if err := llmjson.Decode(raw, &payload); err != nil {
		return core.IntentResult{}, false
	}

	intent, ok := parseIntent(payload.Intent)
	if !ok {
		return core.IntentResult{}, false
	}
	res := core.IntentResult{
		Intent:     intent,
		Confidence: parseConfidence(payload.Confidence),
		Reasoning:  payload.Reasoning,
	}
	if res.Confidence == core.ConfidenceLow {
		// Interim intent defaults to qna until the user answers the
		// clarification.
		res.Intent = core.IntentQnA
		res.Clarification = strings.TrimSpace(payload.Clarification)
	}
	return res, true
}

func parseIntent(s string) (core.Intent, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "service":
		return core.IntentService, true
	case "booking":
		return core.IntentBooking, true
	case "qna":
		return core.IntentQnA, true
	}
	return "", false
}

func parseConfidence(s string) core.Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return core.ConfidenceHigh
	case "low":
		return core.ConfidenceLow
	default:
		return core.ConfidenceMedium
	}
}

func renderHistory(turns []core.Turn, window int) string {
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(string(t.Role))
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "(empty)"
	}
	return sb.String()
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
