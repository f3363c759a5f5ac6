package booking

import (
	"fmt"
	"strings"

	"github.com/tripwise/concierge/core"
)

var slotQuestionsVI = map[string]string{
	core.SlotRestaurant: "Bạn muốn đặt ở NHÀ HÀNG/ĐỊA ĐIỂM nào?",
	core.SlotPartySize:  "Bạn đi MẤY NGƯỜI vậy?",
	core.SlotTime:       "Bạn muốn đặt vào THỜI GIAN nào (ví dụ: 19:00 tối nay)?",
	core.SlotName:       "Bạn vui lòng cho mình biết HỌ TÊN để mình ghi nhận đặt chỗ.",
	core.SlotPhone:      "Bạn vui lòng cho mình xin SỐ ĐIỆN THOẠI để tiện liên hệ xác nhận nhé.",
	core.SlotEmail:      "Bạn vui lòng cho mình EMAIL để gửi xác nhận đặt chỗ.",
}

var slotQuestionsEN = map[string]string{
	core.SlotRestaurant: "Which RESTAURANT/PLACE would you like to book?",
	core.SlotPartySize:  "For HOW MANY people?",
	core.SlotTime:       "What TIME would you like (e.g., 7:00 PM tonight)?",
	core.SlotName:       "Please tell me your FULL NAME to record the reservation.",
	core.SlotPhone:      "Please share your PHONE NUMBER for confirmation.",
	core.SlotEmail:      "Please provide your EMAIL to receive confirmation.",
}

// alignmentKeywords is the per-slot keyword containment check applied to
// collaborator-generated questions. Free-form generation can silently ask
// for the wrong field; a question is used only if it mentions its target.
var alignmentKeywords = map[string][]string{
	core.SlotRestaurant: {"nhà hàng", "địa điểm", "place", "restaurant"},
	core.SlotPartySize:  {"mấy người", "số người", "bao nhiêu người", "how many", "people", "pax"},
	core.SlotTime:       {"thời gian", "lúc", "giờ", "time", "when"},
	core.SlotName:       {"tên", "name"},
	core.SlotPhone:      {"điện thoại", "số điện thoại", "phone"},
	core.SlotEmail:      {"email"},
}

// isAskAligned reports whether a generated question actually references the
// target slot.
func isAskAligned(ask, targetSlot string) bool {
	text := strings.ToLower(ask)
	for _, k := range alignmentKeywords[targetSlot] {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// nextQuestion picks the question for the highest-priority missing slot,
// preferring the collaborator-personalized phrasing held in NextAsk when it
// passes the alignment guard.
func nextQuestion(state *core.BookingState, missing []string, lang core.Language) string {
	if len(missing) > 0 {
		target := missing[0]
		if state.NextAsk != "" && isAskAligned(state.NextAsk, target) {
			return state.NextAsk
		}
		questions := slotQuestionsEN
		if lang == core.LanguageVietnamese {
			questions = slotQuestionsVI
		}
		if q, ok := questions[target]; ok {
			return q
		}
		return questions[core.SlotRestaurant]
	}

	summary := summaryMessage(state, lang)
	if lang == core.LanguageVietnamese {
		return fmt.Sprintf("Mình đã ghi nhận: %s. Bạn nhập 'chốt' hoặc 'xác nhận' để gửi yêu cầu nhé.", summary)
	}
	return fmt.Sprintf("I have: %s. Type 'confirm' to submit.", summary)
}

// summaryMessage renders the human-readable booking recap.
func summaryMessage(state *core.BookingState, lang core.Language) string {
	if lang == core.LanguageVietnamese {
		return fmt.Sprintf("Đặt bàn tại: %s; Số người: %s; Thời gian: %s; Ghi chú: %s",
			orDefault(state.Restaurant, "Chưa rõ"),
			orDefault(state.PartySize, "Chưa rõ"),
			orDefault(state.Time, "Chưa rõ"),
			state.SpecialRequest)
	}
	return fmt.Sprintf("Booking at: %s; Party size: %s; Time: %s; Notes: %s",
		orDefault(state.Restaurant, "N/A"),
		orDefault(state.PartySize, "N/A"),
		orDefault(state.Time, "N/A"),
		state.SpecialRequest)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// nextSuggestions offers confirm when the booking is complete, cancel
// otherwise.
func nextSuggestions(missingRequired []string, lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		if len(missingRequired) == 0 {
			return []core.Suggestion{{Label: "Chốt đơn", Detail: "Gửi yêu cầu đặt chỗ", Action: "confirm_booking"}}
		}
		return []core.Suggestion{{Label: "Bỏ qua", Detail: "Hủy đặt chỗ", Action: "cancel_booking"}}
	}
	if len(missingRequired) == 0 {
		return []core.Suggestion{{Label: "Confirm", Detail: "Submit booking request", Action: "confirm_booking"}}
	}
	return []core.Suggestion{{Label: "Cancel", Detail: "Cancel booking", Action: "cancel_booking"}}
}
