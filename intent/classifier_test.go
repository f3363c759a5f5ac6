package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/model"
)

func TestKeywordFallbackBooking(t *testing.T) {
	c := NewClassifier()

	res := c.Classify(context.Background(), "book a table", Context{})
	assert.Equal(t, core.IntentBooking, res.Intent)
	assert.Equal(t, core.ConfidenceMedium, res.Confidence)
}

func TestKeywordFallbackService(t *testing.T) {
	c := NewClassifier()

	res := c.Classify(context.Background(), "tìm nhà hàng gần đây", Context{})
	assert.Equal(t, core.IntentService, res.Intent)
}

func TestKeywordFallbackDefaultsToQnA(t *testing.T) {
	c := NewClassifier()

	res := c.Classify(context.Background(), "xin chào", Context{})
	assert.Equal(t, core.IntentQnA, res.Intent)
}

func TestInfoRequestBeatsBookingKeywords(t *testing.T) {
	c := NewClassifier()

	// Mentions price but is an explicit information request.
	res := c.Classify(context.Background(), "what is the price range there", Context{})
	assert.Equal(t, core.IntentQnA, res.Intent)
}

func TestCollaboratorAdoptedOnHighConfidence(t *testing.T) {
	mock := model.NewMockGenerator()
	mock.AddRule("intent classifier", `{"intent":"service","confidence":"high","reasoning":"asks for places","clarification_question":""}`)

	c := NewClassifier(func(o *Options) { o.Generator = mock })

	res := c.Classify(context.Background(), "anywhere good around here?", Context{})
	assert.Equal(t, core.IntentService, res.Intent)
	assert.Equal(t, core.ConfidenceHigh, res.Confidence)
	assert.False(t, res.NeedsClarification())
}

func TestCollaboratorLowConfidenceSetsClarification(t *testing.T) {
	mock := model.NewMockGenerator()
	mock.AddRule("intent classifier", `{"intent":"booking","confidence":"low","reasoning":"ambiguous","clarification_question":"Do you want to make a reservation?"}`)

	c := NewClassifier(func(o *Options) { o.Generator = mock })

	res := c.Classify(context.Background(), "hmm maybe", Context{})
	assert.Equal(t, core.IntentQnA, res.Intent)
	assert.True(t, res.NeedsClarification())
	assert.Equal(t, "Do you want to make a reservation?", res.Clarification)
}

func TestCollaboratorFailureFallsBackSilently(t *testing.T) {
	mock := model.NewMockGenerator()
	mock.FailWith(errors.New("rate limited"))

	c := NewClassifier(func(o *Options) { o.Generator = mock })

	res := c.Classify(context.Background(), "book a table", Context{})
	assert.Equal(t, core.IntentBooking, res.Intent)
}

func TestCollaboratorGarbageFallsBack(t *testing.T) {
	mock := model.NewMockGenerator()
	mock.AddRule("intent classifier", "sure! I think the user wants food")

	c := NewClassifier(func(o *Options) { o.Generator = mock })

	res := c.Classify(context.Background(), "book a table", Context{})
	assert.Equal(t, core.IntentBooking, res.Intent)
}

func TestShouldContinueBookingFieldKeywords(t *testing.T) {
	c := NewClassifier()
	b := core.NewBookingState()
	b.Restaurant = "Sen"

	assert.True(t, c.ShouldContinueBooking(context.Background(), "4 người, 19:00", b))
	assert.True(t, c.ShouldContinueBooking(context.Background(), "minh@x.com", b))
	assert.True(t, c.ShouldContinueBooking(context.Background(), "Minh", b))
}

func TestShouldContinueBookingDivergence(t *testing.T) {
	c := NewClassifier()
	b := core.NewBookingState()

	assert.False(t, c.ShouldContinueBooking(context.Background(), "tại sao biển ở đây đẹp vậy", b))
}

func TestShouldContinueBookingOverlapDefaultsToContinue(t *testing.T) {
	c := NewClassifier()
	b := core.NewBookingState()

	// "tìm" (divergent) plus "nhà hàng" (bookingish), no collaborator.
	assert.True(t, c.ShouldContinueBooking(context.Background(), "tìm nhà hàng 4 người", b))
}

func TestShouldContinueBookingOverlapUsesCollaborator(t *testing.T) {
	mock := model.NewMockGenerator()
	mock.AddRule("Answer with exactly one word", "no")

	c := NewClassifier(func(o *Options) { o.Generator = mock })
	b := core.NewBookingState()

	assert.False(t, c.ShouldContinueBooking(context.Background(), "tìm nhà hàng 4 người", b))
}

func TestShouldContinueBookingInactive(t *testing.T) {
	c := NewClassifier()

	assert.False(t, c.ShouldContinueBooking(context.Background(), "19:00", nil))
	b := core.NewBookingState()
	b.Status = core.BookingCancelled
	assert.False(t, c.ShouldContinueBooking(context.Background(), "19:00", b))
}
