package pipeline

import (
	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/cta"
)

// validationResponse is the short-circuit reply for a bad platform triple.
// language is the raw request value since validation happens before the
// platform context exists.
func validationResponse(err error, language string) *core.Response {
	answer := "Your request could not be processed: invalid platform or device. Please try again."
	if core.Language(language) == core.LanguageVietnamese || language == "" {
		answer = "Yêu cầu của bạn không hợp lệ (nền tảng hoặc thiết bị không được hỗ trợ). Vui lòng thử lại."
	}
	resp := &core.Response{
		Type:        core.ResponseError,
		AnswerAI:    answer,
		Suggestions: retrySuggestions(core.Language(language)),
	}
	resp.SetMeta(core.MetaOrigin, "validation")
	if err != nil {
		resp.SetMeta("validation_error", err.Error())
	}
	return resp
}

// clarifyResponse is the no-agent reply when a stage asked the user to
// disambiguate first.
func clarifyResponse(question string, interim core.Intent, lang core.Language) *core.Response {
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    question,
		Suggestions: clarifySuggestions(lang),
	}
	resp.SetMeta(core.MetaOrigin, core.OriginClarify)
	resp.SetMeta(core.MetaIntent, string(interim))
	return resp
}

// agentErrorResponse is the localized apology for a failed domain
// collaborator call.
func agentErrorResponse(lang core.Language) *core.Response {
	answer := "Sorry, something went wrong while handling your request. Please try again in a moment."
	if lang == core.LanguageVietnamese {
		answer = "Xin lỗi, đã có lỗi khi xử lý yêu cầu của bạn. Bạn vui lòng thử lại sau ít phút nhé."
	}
	resp := &core.Response{
		Type:        core.ResponseError,
		AnswerAI:    answer,
		Suggestions: retrySuggestions(lang),
	}
	resp.SetMeta(core.MetaOrigin, "error")
	return resp
}

// FallbackResponse is the outermost-boundary reply for unexpected failures.
// Exported for the engine façade's recovery path.
func FallbackResponse(lang core.Language) *core.Response {
	answer := "Sorry, I ran into an unexpected problem. Please try again."
	if lang == core.LanguageVietnamese {
		answer = "Xin lỗi, mình gặp sự cố ngoài dự kiến. Bạn vui lòng thử lại nhé."
	}
	resp := &core.Response{
		Type:        core.ResponseError,
		AnswerAI:    answer,
		Suggestions: retrySuggestions(lang),
	}
	resp.SetMeta(core.MetaOrigin, "error")
	return resp
}

func ctaFor(pctx core.PlatformContext, services []core.Service) *core.CTA {
	return cta.ForResponse(pctx, services)
}

func retrySuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageEnglish {
		return []core.Suggestion{{Label: "Try again", Detail: "Send the request once more", Action: "retry"}}
	}
	return []core.Suggestion{{Label: "Thử lại", Detail: "Gửi lại yêu cầu", Action: "retry"}}
}

func clarifySuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageEnglish {
		return []core.Suggestion{
			{Label: "Find restaurants", Detail: "Discover places to eat", Action: "show_services"},
			{Label: "Book a table", Detail: "Start a reservation", Action: "collect_user_info"},
			{Label: "Ask a question", Detail: "Travel tips and info", Action: "qna"},
		}
	}
	return []core.Suggestion{
		{Label: "Tìm nhà hàng", Detail: "Khám phá địa điểm ăn uống", Action: "show_services"},
		{Label: "Đặt bàn", Detail: "Bắt đầu đặt chỗ", Action: "collect_user_info"},
		{Label: "Hỏi đáp", Detail: "Mẹo và thông tin du lịch", Action: "qna"},
	}
}
