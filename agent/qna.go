package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
)

// Answer is one knowledge-base result: the text plus the citations backing
// it. Cited answers are protected from downstream rewording.
type Answer struct {
	Text    string
	Sources []core.Source
}

// KnowledgeBase is the retrieval collaborator behind the QnA agent. The
// vector-search internals stay on the far side of this interface.
type KnowledgeBase interface {
	Answer(ctx context.Context, query string, lang core.Language) (Answer, error)
}

// StaticKnowledgeBase serves canned answers matched by substring, for tests
// and offline setups.
type StaticKnowledgeBase struct {
	Entries map[string]Answer
}

// Answer implements KnowledgeBase.
func (s *StaticKnowledgeBase) Answer(_ context.Context, query string, _ core.Language) (Answer, error) {
	lower := strings.ToLower(query)
	for key, ans := range s.Entries {
		if strings.Contains(lower, strings.ToLower(key)) {
			return ans, nil
		}
	}
	return Answer{}, core.ErrNotConfigured
}

// QnAAgent answers information requests: knowledge base first (with
// citations), then a plain generator reply, then a localized canned
// fallback. It never fails the turn.
type QnAAgent struct {
	kb        KnowledgeBase
	generator model.Generator
	logger    logging.Logger
}

// QnAOptions configure a QnAAgent.
type QnAOptions struct {
	KnowledgeBase KnowledgeBase
	Generator     model.Generator
	Logger        logging.Logger
}

// NewQnAAgent constructs a QnAAgent.
func NewQnAAgent(optFns ...func(o *QnAOptions)) *QnAAgent {
	opts := QnAOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &QnAAgent{kb: opts.KnowledgeBase, generator: opts.Generator, logger: opts.Logger}
}

const qnaAnswerTemplate = `You are a knowledgeable travel concierge for central Vietnam. Answer the question below in the user's language (%s), concise and factual, max 120 words. If you do not know, say so briefly.
Question: "%s"`

// Handle answers one question.
func (a *QnAAgent) Handle(ctx context.Context, query string, pctx core.PlatformContext) (*core.Response, error) {
	lang := pctx.Language

	if a.kb != nil {
		if ans, err := a.kb.Answer(ctx, query, lang); err == nil && strings.TrimSpace(ans.Text) != "" {
			resp := &core.Response{
				Type:        core.ResponseQnA,
				AnswerAI:    strings.TrimSpace(ans.Text),
				Sources:     ans.Sources,
				Suggestions: qnaSuggestions(lang),
			}
			resp.SetMeta(core.MetaOrigin, core.OriginKnowledge)
			return resp, nil
		} else if err != nil {
			a.logger.Debug("knowledge base miss", "error", err)
		}
	}

	if a.generator != nil && a.generator.IsConfigured() {
		p := fmt.Sprintf(qnaAnswerTemplate, lang, query)
		if out, err := a.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 300, Temperature: 0.7}); err == nil && strings.TrimSpace(out) != "" {
			resp := &core.Response{
				Type:        core.ResponseQnA,
				AnswerAI:    strings.TrimSpace(out),
				Suggestions: qnaSuggestions(lang),
			}
			resp.SetMeta(core.MetaOrigin, core.OriginKnowledge)
			return resp, nil
		}
		a.logger.Debug("qna generation fell back to canned answer")
	}

	return a.fallback(query, lang), nil
}

// fallback is the canned reply when no collaborator can answer: a greeting
// for greetings, capability help otherwise.
func (a *QnAAgent) fallback(query string, lang core.Language) *core.Response {
	lower := strings.ToLower(query)
	greeting := strings.Contains(lower, "hello") || strings.Contains(lower, "hi ") ||
		strings.Contains(lower, "chào") || lower == "hi"

	var answer string
	switch {
	case greeting && lang == core.LanguageVietnamese:
		answer = "Xin chào! Mình là TripWise, trợ lý du lịch của bạn. Mình có thể giúp tìm nhà hàng, địa điểm tham quan và đặt chỗ tại Đà Nẵng, Hội An và các thành phố khác."
	case greeting:
		answer = "Hello! I'm TripWise, your travel assistant. I can help you find restaurants, attractions, and make reservations in Da Nang, Hoi An, and beyond."
	case lang == core.LanguageVietnamese:
		answer = "Mình có thể giúp bạn:\n• Tìm nhà hàng và đặt bàn\n• Khám phá địa điểm du lịch\n• Tư vấn ẩm thực và văn hóa địa phương"
	default:
		answer = "I can help you with:\n• Finding restaurants and booking tables\n• Discovering attractions\n• Local food and culture advice"
	}

	resp := &core.Response{Type: core.ResponseQnA, AnswerAI: answer, Suggestions: qnaSuggestions(lang)}
	resp.SetMeta(core.MetaOrigin, core.OriginKnowledge)
	return resp
}

func qnaSuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		return []core.Suggestion{
			{Label: "Tìm nhà hàng", Detail: "Khám phá các nhà hàng nổi tiếng", Action: "show_services"},
			{Label: "Địa điểm du lịch", Detail: "Tìm hiểu các điểm đến hấp dẫn", Action: "show_attractions"},
			{Label: "Đặt chỗ ngay", Detail: "Đặt bàn tại nhà hàng yêu thích", Action: "collect_user_info"},
		}
	}
	return []core.Suggestion{
		{Label: "Find restaurants", Detail: "Discover popular restaurants", Action: "show_services"},
		{Label: "Attractions", Detail: "Learn about exciting destinations", Action: "show_attractions"},
		{Label: "Book now", Detail: "Reserve at your favorite restaurant", Action: "collect_user_info"},
	}
}
