// Package booking implements the incremental slot-filling state machine for
// restaurant reservations. It collects slots one question at a time,
// tolerates interruptions and corrections, budgets off-topic turns, and
// dispatches a notification side effect on confirmation. The machine owns
// only the nested booking record it reads and writes through the session
// store.
package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/notify"
	"github.com/tripwise/concierge/session"
)

// Machine drives the reservation workflow for one utterance at a time.
type Machine struct {
	store     *session.Store
	generator model.Generator
	finder    discovery.Finder
	notifier  notify.Notifier
	logger    logging.Logger

	offTopicThreshold  int
	maxRecommendations int
}

// Options configure a Machine.
type Options struct {
	Generator model.Generator
	Finder    discovery.Finder
	Notifier  notify.Notifier
	Logger    logging.Logger
	// OffTopicThreshold is how many consecutive unrelated turns cancel the
	// booking.
	OffTopicThreshold int
	// MaxRecommendations caps the cached discovery candidates.
	MaxRecommendations int
}

// NewMachine constructs a Machine bound to a session store.
func NewMachine(store *session.Store, optFns ...func(o *Options)) *Machine {
	opts := Options{Logger: logging.NoOpLogger{}, OffTopicThreshold: 3, MaxRecommendations: 5}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Machine{
		store:              store,
		generator:          opts.Generator,
		finder:             opts.Finder,
		notifier:           opts.Notifier,
		logger:             opts.Logger,
		offTopicThreshold:  opts.OffTopicThreshold,
		maxRecommendations: opts.MaxRecommendations,
	}
}

// Handle processes one booking-routed utterance and returns the reply.
func (m *Machine) Handle(ctx context.Context, sessionID, message string, pctx core.PlatformContext) (*core.Response, error) {
	lang := pctx.Language
	state := m.bootstrap(sessionID)

	// Pending restaurant choice from a previous discovery pass.
	if state.AwaitingSelection && len(state.Recommendations) > 0 {
		if picked := selectRecommendation(message, state.Recommendations); picked != nil {
			state.Restaurant = picked.Name
			state.RestaurantID = picked.ID
			state.AwaitingSelection = false
			state.Recommendations = nil
			state.OffTopicCount = 0
		}
	}

	// A place proposed from prior context needs an explicit yes/no before it
	// becomes the restaurant slot.
	if state.SuggestedPlace != "" && state.Restaurant == "" {
		if resp := m.resolveSuggestedPlace(sessionID, state, message, lang); resp != nil {
			return resp, nil
		}
	}

	ext := m.extract(ctx, state, message, lang)

	// A slot marked as being modified captures this answer exclusively.
	if state.ModifyingSlot != "" {
		m.fillModifiedSlot(state, ext, message)
	}

	switch ext.UserIntent {
	case UserIntentModification:
		if resp := m.handleModification(sessionID, state, ext, lang); resp != nil {
			return resp, nil
		}
	case UserIntentPauseBooking, UserIntentAnswerRequest:
		return m.handlePause(sessionID, state, message, lang), nil
	case UserIntentContinueBooking:
		state.Paused = false
		state.OffTopicCount = 0
	case UserIntentStartBooking:
		state = m.reseed(state)
	case UserIntentOtherTopic:
		return m.handleOffTopic(sessionID, state, message, lang), nil
	}

	// Additive merge: non-empty only, never regressing filled slots.
	updated := false
	for slot, v := range ext.Fields {
		if v != "" && state.Slot(slot) == "" {
			state.SetSlot(slot, v)
			updated = true
		} else if v != "" && state.ModifyingSlot == "" && state.Slot(slot) != v && slotAcceptsOverwrite(slot) {
			state.SetSlot(slot, v)
			updated = true
		}
	}
	if updated {
		state.OffTopicCount = 0
		if state.SuggestedPlace != "" && state.Restaurant != "" {
			state.SuggestedPlace = ""
		}
	}
	if ext.NextQuestion != "" {
		state.NextAsk = ext.NextQuestion
	}

	m.persistIdentity(sessionID, state)

	// Discovery sub-flow: no restaurant yet and the message asks to search.
	if state.Restaurant == "" && !state.AwaitingSelection && isDiscoveryMessage(message, lang) {
		if resp := m.handleDiscovery(ctx, sessionID, state, message, lang); resp != nil {
			return resp, nil
		}
	}

	if ext.UserIntent == UserIntentConfirmation || isConfirmation(message, lang) {
		state.Confirmed = true
	}

	missingRequired := state.MissingRequired()
	if len(missingRequired) == 0 {
		state.Status = core.BookingReady
	}

	if state.Status == core.BookingReady && state.Confirmed {
		return m.submit(ctx, sessionID, state, pctx), nil
	}

	m.store.SetBooking(sessionID, state)
	ask := nextQuestion(state, state.MissingByPriority(), lang)
	if state.SuggestedPlace != "" && state.Restaurant == "" {
		ask = suggestedPlaceQuestion(state.SuggestedPlace, lang)
	}
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    ask,
		Suggestions: nextSuggestions(missingRequired, lang),
	}
	annotate(resp, state)
	return resp, nil
}

// bootstrap loads the active booking or starts a fresh one, seeding a
// suggested place from conversation context and re-seeding slots from a
// previous cancellation snapshot.
func (m *Machine) bootstrap(sessionID string) *core.BookingState {
	state := m.store.Booking(sessionID)
	if state.Active() {
		return state
	}

	fresh := core.NewBookingState()
	if state != nil && len(state.CollectedInfo) > 0 {
		for slot, v := range state.CollectedInfo {
			fresh.SetSlot(slot, v)
		}
	}

	ents := m.store.GetEntities(sessionID)
	if fresh.Restaurant == "" {
		if place := firstNonEmpty(ents.CurrentPlace, ents.LastMentionedPlace); place != "" {
			fresh.SuggestedPlace = place
		}
	}
	if fresh.Name == "" {
		fresh.Name = ents.UserName
	}
	if fresh.Email == "" {
		fresh.Email = ents.UserEmail
	}
	if fresh.Phone == "" {
		fresh.Phone = ents.UserPhone
	}
	return fresh
}

// reseed starts a fresh booking reusing any collected_info snapshot so
// already-known fields are not asked again.
func (m *Machine) reseed(state *core.BookingState) *core.BookingState {
	fresh := core.NewBookingState()
	for slot, v := range state.CollectedInfo {
		fresh.SetSlot(slot, v)
	}
	for _, slot := range append(append([]string{}, core.SlotPriority...), core.SlotSpecialRequest) {
		if fresh.Slot(slot) == "" {
			fresh.SetSlot(slot, state.Slot(slot))
		}
	}
	return fresh
}

var yesWords = []string{"có", "đúng", "đúng rồi", "vâng", "ừ", "yes", "yeah", "yep", "sure", "ok", "okay"}
var noWords = []string{"không", "khong", "no", "nope", "khác", "not"}

// resolveSuggestedPlace interprets an explicit yes/no reply to a proposed
// restaurant. Rejection clears the suggestion and asks for alternate
// criteria; acceptance adopts the place and lets the turn continue. Any
// other message returns nil and keeps the suggestion pending.
func (m *Machine) resolveSuggestedPlace(sessionID string, state *core.BookingState, message string, lang core.Language) *core.Response {
	t := strings.ToLower(strings.TrimSpace(message))

	if containsWord(t, noWords) {
		state.SuggestedPlace = ""
		m.store.SetBooking(sessionID, state)
		answer := "No problem. Which restaurant would you like, or what kind of place should I look for?"
		if lang == core.LanguageVietnamese {
			answer = "Không sao. Bạn muốn đặt nhà hàng nào, hay mình tìm theo tiêu chí khác giúp bạn?"
		}
		resp := &core.Response{Type: core.ResponseQnA, AnswerAI: answer, Suggestions: nextSuggestions(state.MissingRequired(), lang)}
		annotate(resp, state)
		return resp
	}

	if containsWord(t, yesWords) {
		state.Restaurant = state.SuggestedPlace
		state.SuggestedPlace = ""
		state.OffTopicCount = 0
	}
	return nil
}

// suggestedPlaceQuestion is the pending yes/no ask surfaced when the
// restaurant slot is still the next thing to fill.
func suggestedPlaceQuestion(place string, lang core.Language) string {
	if lang == core.LanguageVietnamese {
		return fmt.Sprintf("Bạn muốn đặt tại %s phải không? (có/không)", place)
	}
	return fmt.Sprintf("Would you like to book at %s? (yes/no)", place)
}

// handleModification clears the named slot and asks for its new value.
func (m *Machine) handleModification(sessionID string, state *core.BookingState, ext Extraction, lang core.Language) *core.Response {
	slot := ext.ModifiedSlot
	if slot == "" {
		return nil
	}
	// The message may already carry the replacement value.
	if v := ext.Fields[slot]; v != "" {
		state.SetSlot(slot, v)
		state.OffTopicCount = 0
		return nil
	}

	state.SetSlot(slot, "")
	state.ModifyingSlot = slot
	state.OffTopicCount = 0
	m.store.SetBooking(sessionID, state)

	questions := slotQuestionsEN
	if lang == core.LanguageVietnamese {
		questions = slotQuestionsVI
	}
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    questions[slot],
		Suggestions: nextSuggestions(state.MissingRequired(), lang),
	}
	annotate(resp, state)
	return resp
}

// fillModifiedSlot routes this answer into the slot being modified, using
// the extractor's value for that slot or the raw message.
func (m *Machine) fillModifiedSlot(state *core.BookingState, ext Extraction, message string) {
	slot := state.ModifyingSlot
	v := ext.Fields[slot]
	if v == "" {
		v = strings.TrimSpace(message)
	}
	if v != "" {
		state.SetSlot(slot, v)
		state.OffTopicCount = 0
	}
	state.ModifyingSlot = ""
	// The answer was consumed by the modified slot; drop it from the merge
	// set so it cannot leak into another field.
	delete(ext.Fields, slot)
}

// handlePause surfaces the deferred question and parks the booking without
// discarding collected slots.
func (m *Machine) handlePause(sessionID string, state *core.BookingState, message string, lang core.Language) *core.Response {
	state.Paused = true
	state.PendingQuestion = message
	m.store.SetBooking(sessionID, state)

	answer := fmt.Sprintf("Sure, let's take that first: %q. Your booking so far is saved; say 'continue' to resume.", message)
	if lang == core.LanguageVietnamese {
		answer = fmt.Sprintf("Được, mình trả lời trước: %q. Thông tin đặt chỗ vẫn được giữ; bạn nói 'tiếp tục' để quay lại nhé.", message)
	}
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    answer,
		Suggestions: continueSuggestions(lang),
	}
	annotate(resp, state)
	return resp
}

// handleOffTopic spends one unit of the interruption budget. At the
// threshold the booking auto-cancels, preserving slot values in
// collected_info for reuse.
func (m *Machine) handleOffTopic(sessionID string, state *core.BookingState, message string, lang core.Language) *core.Response {
	state.OffTopicCount++

	if state.OffTopicCount >= m.offTopicThreshold {
		state.CollectedInfo = state.SlotSnapshot()
		state.Status = core.BookingCancelled
		state.OffTopicCount = 0
		state.Confirmed = false
		m.store.SetBooking(sessionID, state)
		m.logger.Info("booking auto-cancelled by interruption budget", "session_id", sessionID)

		answer := "I've set the booking aside since we've moved on. Your details are saved; say 'book' anytime to pick it back up."
		if lang == core.LanguageVietnamese {
			answer = "Mình tạm hủy đặt chỗ vì chúng ta đã chuyển chủ đề. Thông tin của bạn vẫn được lưu; nói 'đặt bàn' bất cứ lúc nào để tiếp tục nhé."
		}
		resp := &core.Response{Type: core.ResponseQnA, AnswerAI: answer, Suggestions: restartSuggestions(lang)}
		annotate(resp, state)
		return resp
	}

	m.store.SetBooking(sessionID, state)
	answer := fmt.Sprintf("That seems unrelated to your booking. Want me to answer %q now, or keep going with the reservation?", message)
	if lang == core.LanguageVietnamese {
		answer = fmt.Sprintf("Câu này có vẻ không liên quan đến đặt chỗ. Bạn muốn mình trả lời %q ngay, hay tiếp tục đặt bàn?", message)
	}
	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    answer,
		Suggestions: offTopicSuggestions(lang),
	}
	annotate(resp, state)
	return resp
}

var discoveryTriggersVI = []string{"tìm", "gợi ý", "gần", "xung quanh", "khu vực", "biển", "near", "around"}
var discoveryTriggersEN = []string{"find", "suggest", "near", "around", "area", "recommend"}

func isDiscoveryMessage(message string, lang core.Language) bool {
	t := strings.ToLower(message)
	triggers := discoveryTriggersEN
	if lang == core.LanguageVietnamese {
		triggers = discoveryTriggersVI
	}
	for _, trig := range triggers {
		if strings.Contains(t, trig) {
			return true
		}
	}
	return false
}

// handleDiscovery defers to the discovery collaborator, caches ranked
// candidates, and asks the user to choose. A failed or empty search returns
// nil so slot collection resumes normally.
func (m *Machine) handleDiscovery(ctx context.Context, sessionID string, state *core.BookingState, message string, lang core.Language) *core.Response {
	if m.finder == nil {
		return nil
	}
	recs, err := m.finder.Search(ctx, message, discovery.Filters{ServiceType: "restaurant", Limit: m.maxRecommendations})
	if err != nil || len(recs) == 0 {
		m.logger.Debug("booking discovery unavailable", "error", err)
		return nil
	}

	state.Recommendations = recs
	state.AwaitingSelection = true
	state.SuggestedPlace = ""
	m.store.SetBooking(sessionID, state)

	shown := recs
	if len(shown) > 3 {
		shown = shown[:3]
	}
	names := make([]string, len(shown))
	for i, r := range shown {
		names[i] = r.Name
	}

	answer := fmt.Sprintf("Here are some places: %s. You can pick 1/2/3 or type the restaurant name.", strings.Join(names, ", "))
	pickLabel := "Pick"
	if lang == core.LanguageVietnamese {
		answer = fmt.Sprintf("Mình gợi ý vài địa điểm: %s. Bạn có thể chọn số 1/2/3 hoặc gõ tên nhà hàng.", strings.Join(names, ", "))
		pickLabel = "Chọn"
	}
	suggestions := make([]core.Suggestion, 0, len(shown))
	for i, r := range shown {
		suggestions = append(suggestions, core.Suggestion{
			Label:  fmt.Sprintf("%s %d: %s", pickLabel, i+1, r.Name),
			Action: "select_restaurant",
		})
	}

	resp := &core.Response{
		Type:        core.ResponseQnA,
		AnswerAI:    answer,
		Services:    recs,
		Suggestions: suggestions,
	}
	annotate(resp, state)
	return resp
}

// submit finalizes a confirmed booking: generates the reference, fires the
// notification side effect, and always returns the human-readable summary
// regardless of delivery success.
func (m *Machine) submit(ctx context.Context, sessionID string, state *core.BookingState, pctx core.PlatformContext) *core.Response {
	lang := pctx.Language
	reference := newReference()

	inquiry := notify.Inquiry{
		Reference:  reference,
		Name:       state.Name,
		Email:      state.Email,
		Phone:      state.Phone,
		Restaurant: state.Restaurant,
		PartySize:  state.PartySize,
		Time:       state.Time,
		Notes:      state.SpecialRequest,
		Language:   lang,
	}

	sentUser := false
	if m.notifier != nil && m.notifier.IsConfigured() {
		m.notifier.SendInquiry(ctx, inquiry)
		sentUser = m.notifier.SendConfirmation(ctx, inquiry)
	}

	state.Status = core.BookingSubmitted
	m.store.SetBooking(sessionID, state)
	m.logger.Info("booking submitted", "session_id", sessionID, "reference", reference)

	var answer string
	var suggestions []core.Suggestion
	if lang == core.LanguageVietnamese {
		answer = fmt.Sprintf("Đã ghi nhận yêu cầu đặt chỗ. Mã tham chiếu: %s. ", reference)
		if sentUser {
			answer += "Email xác nhận đã được gửi đến bạn."
		} else {
			answer += "(Chưa gửi email xác nhận.)"
		}
		suggestions = []core.Suggestion{
			{Label: "Tìm thêm nhà hàng", Detail: "Khám phá địa điểm khác", Action: "show_more_services"},
			{Label: "Tư vấn thêm", Detail: "Hỏi đáp về địa điểm/ẩm thực", Action: "qna"},
		}
	} else {
		answer = fmt.Sprintf("Your reservation request has been recorded. Reference: %s. ", reference)
		if sentUser {
			answer += "A confirmation email has been sent."
		} else {
			answer += "(Confirmation email not sent.)"
		}
		suggestions = []core.Suggestion{
			{Label: "See more restaurants", Detail: "Explore other places", Action: "show_more_services"},
			{Label: "Ask more", Detail: "Q&A about destinations/food", Action: "qna"},
		}
	}

	resp := &core.Response{Type: core.ResponseQnA, AnswerAI: answer, Suggestions: suggestions}
	annotate(resp, state)
	return resp
}

// persistIdentity mirrors contact slots and the chosen restaurant into the
// session entity map through the conflict-aware merge.
func (m *Machine) persistIdentity(sessionID string, state *core.BookingState) {
	m.store.UpdateEntitiesSafe(sessionID, core.EntityUpdate{
		UserName:     state.Name,
		UserEmail:    state.Email,
		UserPhone:    state.Phone,
		CurrentPlace: state.Restaurant,
	}, "booking")
}

func newReference() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TRIPW-" + hex[:8]
}

// slotAcceptsOverwrite marks slots where a newer explicit mention replaces
// the old value mid-collection (times and party sizes change; identity
// fields only change through modification).
func slotAcceptsOverwrite(slot string) bool {
	switch slot {
	case core.SlotTime, core.SlotPartySize, core.SlotSpecialRequest:
		return true
	}
	return false
}

func annotate(resp *core.Response, state *core.BookingState) {
	resp.SetMeta(core.MetaOrigin, core.OriginBooking)
	resp.SetMeta(core.MetaBookingPhase, string(state.Status))
}

func containsWord(t string, words []string) bool {
	fields := strings.FieldsFunc(t, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	// Multi-word phrases.
	for _, w := range words {
		if strings.Contains(w, " ") && strings.Contains(t, w) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func continueSuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		return []core.Suggestion{{Label: "Tiếp tục đặt chỗ", Detail: "Quay lại đặt bàn", Action: "continue_booking"}}
	}
	return []core.Suggestion{{Label: "Continue booking", Detail: "Resume the reservation", Action: "continue_booking"}}
}

func offTopicSuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		return []core.Suggestion{
			{Label: "Trả lời ngay", Detail: "Trả lời câu hỏi này trước", Action: "answer_request"},
			{Label: "Tiếp tục đặt chỗ", Detail: "Bỏ qua và đặt bàn tiếp", Action: "continue_booking"},
		}
	}
	return []core.Suggestion{
		{Label: "Answer now", Detail: "Answer this question first", Action: "answer_request"},
		{Label: "Keep booking", Detail: "Ignore and continue the reservation", Action: "continue_booking"},
	}
}

func restartSuggestions(lang core.Language) []core.Suggestion {
	if lang == core.LanguageVietnamese {
		return []core.Suggestion{{Label: "Đặt bàn lại", Detail: "Tiếp tục với thông tin đã lưu", Action: "start_booking"}}
	}
	return []core.Suggestion{{Label: "Book again", Detail: "Resume with saved details", Action: "start_booking"}}
}
