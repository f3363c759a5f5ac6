package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/model"
)

// Keywords suggesting the utterance carries booking-field content and should
// stay with the active booking.
var bookingFieldKeywords = []string{
	"người", "nguoi", "pax", "people", "person",
	"giờ", "tối", "trưa", "sáng", "chiều", "tonight", "evening", "lunch",
	"dinner", "breakfast", "pm", "am",
	"tên", "name", "email", "điện thoại", "phone", "số điện thoại",
	"chốt", "xác nhận", "confirm", "hủy", "cancel", "đổi", "change",
	"nhà hàng", "restaurant", "bàn", "table",
}

// Keywords suggesting the utterance leaves the booking for discovery or a
// general question.
var divergenceKeywords = []string{
	"tìm", "gợi ý", "khám phá", "ở đâu", "gần đây",
	"find", "suggest", "explore", "where", "nearby",
	"là gì", "tại sao", "như thế nào",
	"what is", "what's", "why", "how",
}

var digitsRe = regexp.MustCompile(`\d`)
var contactRe = regexp.MustCompile(`@|\+?\d{9,13}`)

// ShouldContinueBooking decides whether an utterance arriving while a
// booking is active should be force-routed to the booking handler,
// irrespective of the classified intent. Pure keyword cases are decided
// deterministically; when both keyword families match, a constrained yes/no
// collaborator query breaks the tie, defaulting to continue.
func (c *Classifier) ShouldContinueBooking(ctx context.Context, message string, booking *core.BookingState) bool {
	if !booking.Active() {
		return false
	}
	m := strings.ToLower(message)

	bookingish := containsAny(m, bookingFieldKeywords) ||
		digitsRe.MatchString(m) || contactRe.MatchString(m)
	divergent := containsAny(m, divergenceKeywords)

	switch {
	case bookingish && !divergent:
		return true
	case divergent && !bookingish:
		return false
	case !bookingish && !divergent:
		// Short free-form answers ("Minh", "ok") are almost always slot
		// values during an active booking.
		return true
	}

	return c.askContinuation(ctx, message, booking)
}

const continuationTemplate = `A user is in the middle of a restaurant booking (filled so far: %s).
Their new message: "%s"
Does this message continue the booking (provide info, confirm, modify) rather than change the subject?
Answer with exactly one word: yes or no.`

// askContinuation is the constrained tie-breaker. Unavailable or ambiguous
// collaborator output defaults to continuing the booking.
func (c *Classifier) askContinuation(ctx context.Context, message string, booking *core.BookingState) bool {
	if c.generator == nil || !c.generator.IsConfigured() {
		return true
	}
	filled := make([]string, 0, len(core.SlotPriority))
	for _, s := range core.SlotPriority {
		if booking.Slot(s) != "" {
			filled = append(filled, s)
		}
	}
	filledDesc := strings.Join(filled, ", ")
	if filledDesc == "" {
		filledDesc = "nothing"
	}
	p := fmt.Sprintf(continuationTemplate, filledDesc, message)
	raw, err := c.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 5, Temperature: 0})
	if err != nil {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(raw))
	return !strings.HasPrefix(answer, "no")
}
