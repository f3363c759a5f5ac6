package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
)

// serviceTypeKeywords maps a detected service type to its trigger words.
var serviceTypeKeywords = map[string][]string{
	"restaurant": {"nhà hàng", "quán ăn", "đồ ăn", "ẩm thực", "restaurant", "food", "dining"},
	"tour":       {"tour", "du lịch", "tham quan", "điểm đến", "attraction", "sightseeing"},
	"hotel":      {"khách sạn", "nơi ở", "accommodation", "hotel", "lodging"},
}

// ServiceAgent answers discovery and exploration requests through the places
// collaborator, optionally wording the reply with the text generator.
type ServiceAgent struct {
	finder    discovery.Finder
	generator model.Generator
	logger    logging.Logger
	pageSize  int
}

// ServiceOptions configure a ServiceAgent.
type ServiceOptions struct {
	Generator model.Generator
	Logger    logging.Logger
	// PageSize caps how many places are requested per search.
	PageSize int
}

// NewServiceAgent constructs a ServiceAgent over a discovery Finder.
func NewServiceAgent(finder discovery.Finder, optFns ...func(o *ServiceOptions)) *ServiceAgent {
	opts := ServiceOptions{Logger: logging.NoOpLogger{}, PageSize: 10}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ServiceAgent{
		finder:    finder,
		generator: opts.Generator,
		logger:    opts.Logger,
		pageSize:  opts.PageSize,
	}
}

// Handle runs one discovery request. Finder failures come back as
// *core.AgentError; an empty result set is a normal localized reply.
func (a *ServiceAgent) Handle(ctx context.Context, query string, pctx core.PlatformContext) (*core.Response, error) {
	serviceType := detectServiceType(query)

	if a.finder == nil {
		return a.noResults(serviceType, pctx), nil
	}
	services, err := a.finder.Search(ctx, query, discovery.Filters{ServiceType: serviceType, Limit: a.pageSize})
	if err != nil {
		a.logger.Warn("service search failed", "error", err, "service_type", serviceType)
		return nil, &core.AgentError{Agent: "service", Err: err}
	}
	if len(services) == 0 {
		return a.noResults(serviceType, pctx), nil
	}

	answer := a.wordAnswer(ctx, query, services, serviceType, pctx.Language)
	resp := &core.Response{
		Type:        core.ResponseService,
		AnswerAI:    answer,
		Services:    services,
		Sources:     a.finder.Sources(),
		Suggestions: serviceSuggestions(serviceType, pctx.Language),
	}
	resp.SetMeta(core.MetaOrigin, core.OriginService)
	return resp, nil
}

// detectServiceType reads the requested category out of the query, defaulting
// to restaurant.
func detectServiceType(query string) string {
	lower := strings.ToLower(query)
	for _, st := range []string{"hotel", "tour", "restaurant"} {
		for _, k := range serviceTypeKeywords[st] {
			if strings.Contains(lower, k) {
				return st
			}
		}
	}
	return "restaurant"
}

const serviceAnswerTemplate = `You are a friendly travel concierge. The user asked (%s): "%s"
Matching %s options: %s
Write a short, warm reply (max 80 words, same language as the user) that presents the options and invites them to pick one. Plain text only.`

// wordAnswer asks the generator for a natural reply and falls back to a
// deterministic summary.
func (a *ServiceAgent) wordAnswer(ctx context.Context, query string, services []core.Service, serviceType string, lang core.Language) string {
	if a.generator != nil && a.generator.IsConfigured() {
		names := make([]string, 0, len(services))
		for _, s := range services {
			names = append(names, s.Name)
		}
		p := fmt.Sprintf(serviceAnswerTemplate, lang, query, serviceType, strings.Join(names, ", "))
		if out, err := a.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 200, Temperature: 0.7}); err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		a.logger.Debug("service answer generation fell back to template")
	}

	top := services[0].Name
	if lang == core.LanguageVietnamese {
		return fmt.Sprintf("Mình tìm được %d lựa chọn phù hợp, nổi bật là %s. Bạn muốn xem chi tiết hay đặt chỗ luôn không?", len(services), top)
	}
	return fmt.Sprintf("I found %d matching options, with %s standing out. Want details, or shall I book one for you?", len(services), top)
}

// noResults is the localized empty-result reply, not an error.
func (a *ServiceAgent) noResults(serviceType string, pctx core.PlatformContext) *core.Response {
	answer := fmt.Sprintf("I couldn't find any %s matching that right now. Try a different area or cuisine?", serviceType)
	if pctx.Language == core.LanguageVietnamese {
		answer = "Mình chưa tìm thấy địa điểm phù hợp. Bạn thử đổi khu vực hoặc tiêu chí khác nhé?"
	}
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    answer,
		Suggestions: serviceSuggestions(serviceType, pctx.Language),
	}
	resp.SetMeta(core.MetaOrigin, core.OriginService)
	return resp
}

func serviceSuggestions(serviceType string, lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		return []core.Suggestion{
			{Label: "Xem thêm", Detail: "Hiển thị thêm lựa chọn", Action: "show_more_services"},
			{Label: "Đặt chỗ", Detail: "Đặt bàn tại địa điểm bạn thích", Action: "collect_user_info"},
		}
	}
	return []core.Suggestion{
		{Label: "See more", Detail: "Show more options", Action: "show_more_services"},
		{Label: "Book now", Detail: "Reserve at a place you like", Action: "collect_user_info"},
	}
}
