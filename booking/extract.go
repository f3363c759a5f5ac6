package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/internal/llmjson"
	"github.com/tripwise/concierge/model"
)

// UserIntent labels what the user is doing with respect to the active
// booking, as interpreted from one utterance.
type UserIntent string

const (
	UserIntentBookingInfo     UserIntent = "booking_info"
	UserIntentModification    UserIntent = "modification"
	UserIntentConfirmation    UserIntent = "confirmation"
	UserIntentPauseBooking    UserIntent = "pause_booking"
	UserIntentAnswerRequest   UserIntent = "answer_request"
	UserIntentContinueBooking UserIntent = "continue_booking"
	UserIntentStartBooking    UserIntent = "start_booking"
	UserIntentOtherTopic      UserIntent = "other_topic"
)

// Extraction is the per-turn analysis of one utterance against the booking.
type Extraction struct {
	Fields       map[string]string
	UserIntent   UserIntent
	ModifiedSlot string
	NextQuestion string
	Confidence   core.Confidence
}

var (
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe     = regexp.MustCompile(`\+?\d{9,13}`)
	partySizeRe = regexp.MustCompile(`(\d+)\s*(người|nguoi|pax|people)`)
	clockTimeRe = regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:pm|am)?|\d{1,2}\s*(?:pm|am|h|giờ)`)
	namePrefRe  = regexp.MustCompile(`(?i)(tên|name)\s*:?\s+(là\s+)?([^,\n\r]{2,})`)
	restPrefRe  = regexp.MustCompile(`(?i)nhà hàng\s+([^,.!?\n]{2,})`)
	restSuffRe  = regexp.MustCompile(`[A-ZÀ-Ỹ][\p{L}0-9']*(?:\s+[A-ZÀ-Ỹ][\p{L}0-9']*)*\s+[Rr]estaurant\b`)
	quotedRe    = regexp.MustCompile(`['"]([^'"]{2,})['"]`)
)

var timeWords = []string{
	"tối nay", "tối", "trưa", "sáng", "chiều",
	"tonight", "this evening", "lunch", "dinner", "breakfast",
}

var confirmWordsVI = []string{"chốt", "xác nhận", "đồng ý", "gửi đi", "hoàn tất", "ok", "okie", "oke"}
var confirmWordsEN = []string{"confirm", "okay", "ok", "send", "proceed", "done", "finish"}

var greetingWords = []string{"chào", "xin chào", "hello", "hi", "hey", "cảm ơn", "thanks", "thank"}

// isConfirmation reports whether text contains an explicit confirmation
// keyword for the given language. Matching is word-level so "book" never
// fires on its "ok" substring.
func isConfirmation(text string, lang core.Language) bool {
	words := confirmWordsEN
	if lang == core.LanguageVietnamese {
		words = confirmWordsVI
	}
	return containsWord(strings.ToLower(strings.TrimSpace(text)), words)
}

// extractHeuristic is the deterministic fallback extractor: best-effort
// regexes for contact details, party size, clock or day-part times, and
// restaurant names ("nhà hàng X" or quoted). A bare single word is adopted
// as the name only when no contact info co-occurs in the same message.
func extractHeuristic(text string, lang core.Language) map[string]string {
	fields := map[string]string{}
	lower := strings.ToLower(text)

	if m := emailRe.FindString(text); m != "" {
		fields[core.SlotEmail] = m
	}
	if m := phoneRe.FindString(strings.ReplaceAll(text, " ", "")); m != "" {
		fields[core.SlotPhone] = m
	}
	if m := partySizeRe.FindStringSubmatch(lower); m != nil {
		fields[core.SlotPartySize] = m[1]
	}

	if m := clockTimeRe.FindString(lower); m != "" {
		fields[core.SlotTime] = strings.TrimSpace(m)
	} else {
		for _, w := range timeWords {
			if strings.Contains(lower, w) {
				fields[core.SlotTime] = w
				break
			}
		}
	}

	if m := restPrefRe.FindStringSubmatch(text); m != nil {
		fields[core.SlotRestaurant] = strings.Trim(strings.TrimSpace(m[1]), `'"`)
	} else if m := restSuffRe.FindString(text); m != "" {
		fields[core.SlotRestaurant] = strings.TrimSpace(m)
	} else if m := quotedRe.FindStringSubmatch(text); m != nil {
		fields[core.SlotRestaurant] = strings.TrimSpace(m[1])
	}
	// "tìm nhà hàng gần biển" names search criteria, not a restaurant.
	if r := fields[core.SlotRestaurant]; r != "" && isDiscoveryMessage(r, lang) {
		delete(fields, core.SlotRestaurant)
	}

	if m := namePrefRe.FindStringSubmatch(text); m != nil {
		fields[core.SlotName] = strings.TrimSpace(m[3])
	} else if isBareName(text, fields) {
		fields[core.SlotName] = strings.TrimSpace(text)
	}

	for _, k := range []string{"ghi chú", "note", "yêu cầu đặc biệt", "special request"} {
		if strings.Contains(lower, k) {
			fields[core.SlotSpecialRequest] = strings.TrimSpace(text)
			break
		}
	}

	return fields
}

// isBareName is the short-standalone-answer heuristic: a few words with no
// digits, applied only when nothing else was extracted from the message.
// Confirmation and yes/no words are never names.
func isBareName(text string, already map[string]string) bool {
	if len(already) > 0 {
		return false
	}
	t := strings.TrimSpace(text)
	if t == "" || strings.ContainsAny(t, "0123456789@") {
		return false
	}
	lower := strings.ToLower(t)
	if isConfirmation(lower, core.LanguageVietnamese) || isConfirmation(lower, core.LanguageEnglish) ||
		containsWord(lower, yesWords) || containsWord(lower, noWords) ||
		containsWord(lower, greetingWords) {
		return false
	}
	words := strings.Fields(t)
	return len(words) >= 1 && len(words) <= 3 && len(t) <= 40
}

const extractTemplate = `You are a reservation assistant. Analyze the user's message against the current booking state and return a single JSON object, no extra text:
{
  "extracted_fields": {"restaurant": null, "party_size": null, "time": null, "name": null, "phone": null, "email": null, "special_request": null},
  "user_intent": "booking_info|modification|confirmation|pause_booking|answer_request|continue_booking|start_booking|other_topic",
  "modified_slot": "",
  "next_question": "",
  "confidence": "high|medium|low"
}
Use null for fields the message does not mention. "modification" means the user wants to change an already-filled field; set modified_slot accordingly. "other_topic" means the message is unrelated to the booking.

Current booking state: %s
User message (%s): "%s"`

type extractPayload struct {
	ExtractedFields map[string]*string `json:"extracted_fields"`
	UserIntent      string             `json:"user_intent"`
	ModifiedSlot    string             `json:"modified_slot"`
	NextQuestion    string             `json:"next_question"`
	Confidence      string             `json:"confidence"`
}

// extractWithCollaborator asks the text-generation collaborator for a
// structured read of the message. Returns ok=false on any failure so the
// caller can fall back to extractHeuristic.
func (m *Machine) extractWithCollaborator(ctx context.Context, state *core.BookingState, message string, lang core.Language) (Extraction, bool) {
	if m.generator == nil || !m.generator.IsConfigured() {
		return Extraction{}, false
	}

	snapshot := fmt.Sprintf("%v", state.SlotSnapshot())
	p := fmt.Sprintf(extractTemplate, snapshot, lang, message)

	raw, err := m.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 250, Temperature: 0.2})
	if err != nil || raw == "" {
		return Extraction{}, false
	}

	var payload extractPayload
	if err := llmjson.Decode(raw, &payload); err != nil {
		return Extraction{}, false
	}

	ext := Extraction{
		Fields:       map[string]string{},
		UserIntent:   parseUserIntent(payload.UserIntent),
		ModifiedSlot: normalizeSlot(payload.ModifiedSlot),
		NextQuestion: strings.TrimSpace(payload.NextQuestion),
		Confidence:   parseConfidence(payload.Confidence),
	}
	for _, slot := range append(append([]string{}, core.SlotPriority...), core.SlotSpecialRequest) {
		if v := payload.ExtractedFields[slot]; v != nil && strings.TrimSpace(*v) != "" {
			ext.Fields[slot] = strings.TrimSpace(*v)
		}
	}
	return ext, true
}

func parseUserIntent(s string) UserIntent {
	switch UserIntent(strings.ToLower(strings.TrimSpace(s))) {
	case UserIntentModification, UserIntentConfirmation, UserIntentPauseBooking,
		UserIntentAnswerRequest, UserIntentContinueBooking, UserIntentStartBooking,
		UserIntentOtherTopic, UserIntentBookingInfo:
		return UserIntent(strings.ToLower(strings.TrimSpace(s)))
	default:
		return UserIntentBookingInfo
	}
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

func normalizeSlot(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, slot := range append(append([]string{}, core.SlotPriority...), core.SlotSpecialRequest) {
		if s == slot {
			return slot
		}
	}
	return ""
}

// extract runs the collaborator tier and falls back to heuristics.
func (m *Machine) extract(ctx context.Context, state *core.BookingState, message string, lang core.Language) Extraction {
	if ext, ok := m.extractWithCollaborator(ctx, state, message, lang); ok {
		return ext
	}
	fields := extractHeuristic(message, lang)
	userIntent, modifiedSlot := heuristicUserIntent(message, fields, lang)
	return Extraction{
		Fields:       fields,
		UserIntent:   userIntent,
		ModifiedSlot: modifiedSlot,
		Confidence:   core.ConfidenceMedium,
	}
}

var continueWords = []string{"tiếp tục", "tiep tuc", "quay lại", "continue", "resume"}
var modifyWords = []string{"đổi", "sửa", "thay", "change", "modify", "update"}
var questionWords = []string{
	"là gì", "tại sao", "vì sao", "như thế nào", "thế nào", "thời tiết", "bao xa",
	"what", "why", "how", "when", "weather", "who",
}

// heuristicUserIntent is the deterministic read of what the user is doing,
// used when no collaborator is available. Anything carrying slot values is
// booking_info; clearly interrogative messages with nothing extractable are
// other_topic and spend the interruption budget.
func heuristicUserIntent(message string, fields map[string]string, lang core.Language) (UserIntent, string) {
	t := strings.ToLower(strings.TrimSpace(message))
	if containsWord(t, modifyWords) {
		if slot := mentionedSlot(t); slot != "" {
			return UserIntentModification, slot
		}
	}
	switch {
	case len(fields) > 0:
		return UserIntentBookingInfo, ""
	case isConfirmation(t, lang):
		return UserIntentConfirmation, ""
	case containsWord(t, continueWords):
		return UserIntentContinueBooking, ""
	case containsWord(t, questionWords) || strings.HasSuffix(t, "?"):
		return UserIntentOtherTopic, ""
	default:
		return UserIntentBookingInfo, ""
	}
}

// mentionedSlot maps a slot reference in free text to its canonical name,
// reusing the alignment keyword sets.
func mentionedSlot(t string) string {
	for _, slot := range core.SlotPriority {
		for _, k := range alignmentKeywords[slot] {
			if strings.Contains(t, k) {
				return slot
			}
		}
	}
	return ""
}
