package booking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/notify"
	"github.com/tripwise/concierge/session"
)

func enCtx() core.PlatformContext {
	return core.PlatformContext{Platform: core.PlatformWebBrowser, Device: core.DeviceDesktop, Language: core.LanguageEnglish}
}

func viCtx() core.PlatformContext {
	return core.PlatformContext{Platform: core.PlatformWebBrowser, Device: core.DeviceDesktop, Language: core.LanguageVietnamese}
}

func TestFullBookingFlowSubmits(t *testing.T) {
	store := session.NewStore()
	rec := &notify.Recorder{Configured: true}
	m := NewMachine(store, func(o *Options) { o.Notifier = rec })
	ctx := context.Background()

	turns := []string{
		"I want to book a table",
		"Sen Restaurant, 4 people, 19:00",
		"Name Minh, minh@x.com, 0901234567",
		"confirm",
	}
	var last *core.Response
	for _, msg := range turns {
		var err error
		last, err = m.Handle(ctx, "s1", msg, enCtx())
		require.NoError(t, err)
	}

	state := store.Booking("s1")
	require.NotNil(t, state)
	assert.Equal(t, core.BookingSubmitted, state.Status)
	assert.Equal(t, "Sen Restaurant", state.Restaurant)
	assert.Contains(t, state.PartySize, "4")
	assert.True(t, state.Confirmed)

	assert.Contains(t, last.AnswerAI, "TRIPW-")
	require.Len(t, rec.Inquiries, 1)
	require.Len(t, rec.Confirmations, 1)
	assert.Equal(t, "Minh", rec.Inquiries[0].Name)
}

func TestSlotsAskedInPriorityOrder(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	resp, err := m.Handle(ctx, "s1", "I want to book a table", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "RESTAURANT")

	resp, err = m.Handle(ctx, "s1", "Sen Restaurant", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "HOW MANY")

	resp, err = m.Handle(ctx, "s1", "4 people", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "TIME")
}

func TestConfirmationWithoutRequiredSlotsDoesNotSubmit(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book 'Madame Lan' for 2 people at 19:00", enCtx())
	require.NoError(t, err)
	_, err = m.Handle(ctx, "s1", "confirm", enCtx())
	require.NoError(t, err)

	state := store.Booking("s1")
	assert.NotEqual(t, core.BookingSubmitted, state.Status)
	assert.Equal(t, core.BookingCollecting, state.Status)
}

func TestOffTopicBudgetAutoCancels(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book at 'Madame Lan' for 4 people at 19:00", viCtx())
	require.NoError(t, err)

	offTopic := []string{
		"thời tiết hôm nay thế nào",
		"bãi biển Mỹ Khê cách đây bao xa",
		"tại sao phố cổ Hội An nổi tiếng",
	}
	var resp *core.Response
	for i, msg := range offTopic {
		resp, err = m.Handle(ctx, "s1", msg, viCtx())
		require.NoError(t, err)
		state := store.Booking("s1")
		if i < 2 {
			assert.Equal(t, i+1, state.OffTopicCount, "turn %d", i)
			assert.Equal(t, core.BookingCollecting, state.Status)
		}
	}

	state := store.Booking("s1")
	assert.Equal(t, core.BookingCancelled, state.Status)
	assert.Equal(t, 0, state.OffTopicCount)
	assert.Equal(t, "Madame Lan", state.CollectedInfo[core.SlotRestaurant])
	assert.Equal(t, "4", state.CollectedInfo[core.SlotPartySize])
	assert.NotNil(t, resp)
}

func TestOffTopicLowCountOffersBinaryChoice(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book at 'Madame Lan'", enCtx())
	require.NoError(t, err)

	resp, err := m.Handle(ctx, "s1", "what is the weather like?", enCtx())
	require.NoError(t, err)

	actions := make([]string, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		actions = append(actions, s.Action)
	}
	assert.Contains(t, actions, "answer_request")
	assert.Contains(t, actions, "continue_booking")
}

func TestOffTopicCountResetsOnSlotUpdate(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book at 'Madame Lan'", enCtx())
	require.NoError(t, err)
	_, err = m.Handle(ctx, "s1", "what is the weather like?", enCtx())
	require.NoError(t, err)
	require.Equal(t, 1, store.Booking("s1").OffTopicCount)

	_, err = m.Handle(ctx, "s1", "4 people at 19:00", enCtx())
	require.NoError(t, err)
	assert.Equal(t, 0, store.Booking("s1").OffTopicCount)
}

func TestCancelledSlotsReseedNextBooking(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	state := core.NewBookingState()
	state.Status = core.BookingCancelled
	state.CollectedInfo = map[string]string{
		core.SlotRestaurant: "Madame Lan",
		core.SlotPartySize:  "4",
	}
	store.SetBooking("s1", state)

	resp, err := m.Handle(ctx, "s1", "I want to book a table", enCtx())
	require.NoError(t, err)

	fresh := store.Booking("s1")
	assert.Equal(t, core.BookingCollecting, fresh.Status)
	assert.Equal(t, "Madame Lan", fresh.Restaurant)
	assert.Equal(t, "4", fresh.PartySize)
	// Restaurant and party size known, so the next ask targets the time.
	assert.Contains(t, resp.AnswerAI, "TIME")
}

func TestModificationClearsAndRefillsSlot(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book 'Madame Lan', 4 people, 19:00", enCtx())
	require.NoError(t, err)

	resp, err := m.Handle(ctx, "s1", "change the time please", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "TIME")
	assert.Equal(t, core.SlotTime, store.Booking("s1").ModifyingSlot)
	assert.Empty(t, store.Booking("s1").Time)

	_, err = m.Handle(ctx, "s1", "20:30", enCtx())
	require.NoError(t, err)
	state := store.Booking("s1")
	assert.Equal(t, "20:30", state.Time)
	assert.Empty(t, state.ModifyingSlot)
	assert.Equal(t, "Madame Lan", state.Restaurant)
}

func TestModificationWithInlineValue(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book 'Madame Lan', 4 people, 19:00", enCtx())
	require.NoError(t, err)

	_, err = m.Handle(ctx, "s1", "change the time to 21:00", enCtx())
	require.NoError(t, err)
	assert.Equal(t, "21:00", store.Booking("s1").Time)
}

func TestDiscoverySubFlowAndOrdinalSelection(t *testing.T) {
	store := session.NewStore()
	finder := &discovery.StaticFinder{Places: []core.Service{
		{ID: 1, Name: "Madame Lan", Type: "restaurant", Rating: 4.5},
		{ID: 2, Name: "Nen Danang", Type: "restaurant", Rating: 4.8},
		{ID: 3, Name: "Bep Cuon", Type: "restaurant", Rating: 4.2},
	}}
	m := NewMachine(store, func(o *Options) { o.Finder = finder })
	ctx := context.Background()

	resp, err := m.Handle(ctx, "s1", "find a restaurant near the beach", enCtx())
	require.NoError(t, err)
	require.True(t, store.Booking("s1").AwaitingSelection)
	require.Len(t, store.Booking("s1").Recommendations, 3)
	assert.NotEmpty(t, resp.Services)
	// Ranked by rating, best first.
	assert.Equal(t, "Nen Danang", resp.Services[0].Name)

	_, err = m.Handle(ctx, "s1", "2", enCtx())
	require.NoError(t, err)
	state := store.Booking("s1")
	assert.False(t, state.AwaitingSelection)
	assert.Equal(t, "Madame Lan", state.Restaurant)
	assert.Equal(t, 1, state.RestaurantID)
}

func TestDiscoverySelectionByName(t *testing.T) {
	store := session.NewStore()
	finder := &discovery.StaticFinder{Places: []core.Service{
		{ID: 1, Name: "Madame Lan", Type: "restaurant", Rating: 4.5},
		{ID: 2, Name: "Bep Cuon", Type: "restaurant", Rating: 4.2},
	}}
	m := NewMachine(store, func(o *Options) { o.Finder = finder })
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "suggest some restaurants", enCtx())
	require.NoError(t, err)

	_, err = m.Handle(ctx, "s1", "bep cuon sounds good", enCtx())
	require.NoError(t, err)
	assert.Equal(t, "Bep Cuon", store.Booking("s1").Restaurant)
}

func TestSuggestedPlaceRequiresExplicitYes(t *testing.T) {
	store := session.NewStore()
	store.UpdateEntitiesSafe("s1", core.EntityUpdate{CurrentPlace: "Madame Lan"}, "test")
	m := NewMachine(store)
	ctx := context.Background()

	resp, err := m.Handle(ctx, "s1", "I want to book a table", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "Madame Lan")
	assert.Contains(t, resp.AnswerAI, "yes/no")
	assert.Empty(t, store.Booking("s1").Restaurant)

	_, err = m.Handle(ctx, "s1", "yes", enCtx())
	require.NoError(t, err)
	state := store.Booking("s1")
	assert.Equal(t, "Madame Lan", state.Restaurant)
	assert.Empty(t, state.SuggestedPlace)
}

func TestSuggestedPlaceRejectionAsksForCriteria(t *testing.T) {
	store := session.NewStore()
	store.UpdateEntitiesSafe("s1", core.EntityUpdate{CurrentPlace: "Madame Lan"}, "test")
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "I want to book a table", enCtx())
	require.NoError(t, err)

	resp, err := m.Handle(ctx, "s1", "no", enCtx())
	require.NoError(t, err)
	assert.Empty(t, store.Booking("s1").SuggestedPlace)
	assert.Empty(t, store.Booking("s1").Restaurant)
	assert.Contains(t, strings.ToLower(resp.AnswerAI), "which restaurant")
}

func TestRepeatedMessageDoesNotRegressSlots(t *testing.T) {
	store := session.NewStore()
	m := NewMachine(store)
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book 'Madame Lan', 4 people, 19:00", enCtx())
	require.NoError(t, err)
	before := store.Booking("s1").SlotSnapshot()

	_, err = m.Handle(ctx, "s1", "hello", enCtx())
	require.NoError(t, err)
	after := store.Booking("s1").SlotSnapshot()
	assert.Equal(t, before, after)
}

func TestCollaboratorPauseSurfacesDeferredQuestion(t *testing.T) {
	store := session.NewStore()
	gen := model.NewMockGenerator()
	gen.AddRule("reservation assistant", `{"extracted_fields":{},"user_intent":"pause_booking","modified_slot":"","next_question":"","confidence":"high"}`)
	m := NewMachine(store, func(o *Options) { o.Generator = gen })
	ctx := context.Background()

	state := core.NewBookingState()
	state.Restaurant = "Madame Lan"
	store.SetBooking("s1", state)

	resp, err := m.Handle(ctx, "s1", "wait, what's the dress code there?", enCtx())
	require.NoError(t, err)

	got := store.Booking("s1")
	assert.True(t, got.Paused)
	assert.Equal(t, "wait, what's the dress code there?", got.PendingQuestion)
	assert.Equal(t, "Madame Lan", got.Restaurant)
	assert.Contains(t, resp.AnswerAI, "dress code")
}

func TestCollaboratorNextAskAlignmentGuard(t *testing.T) {
	store := session.NewStore()
	gen := model.NewMockGenerator()
	// Collaborator proposes a question about the time while the next
	// missing slot is party size; the guard must reject it.
	gen.AddRule("reservation assistant", `{"extracted_fields":{"restaurant":"Madame Lan"},"user_intent":"booking_info","modified_slot":"","next_question":"What time works for you?","confidence":"high"}`)
	m := NewMachine(store, func(o *Options) { o.Generator = gen })
	ctx := context.Background()

	resp, err := m.Handle(ctx, "s1", "book at Madame Lan", enCtx())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "HOW MANY")
}

func TestNotificationFailureStillReturnsSummary(t *testing.T) {
	store := session.NewStore()
	rec := &notify.Recorder{Configured: true, FailSends: true}
	m := NewMachine(store, func(o *Options) { o.Notifier = rec })
	ctx := context.Background()

	_, err := m.Handle(ctx, "s1", "book 'Madame Lan', 2 people, 19:00", enCtx())
	require.NoError(t, err)
	_, err = m.Handle(ctx, "s1", "Name: Minh, minh@x.com, 0901234567", enCtx())
	require.NoError(t, err)
	resp, err := m.Handle(ctx, "s1", "confirm", enCtx())
	require.NoError(t, err)

	assert.Equal(t, core.BookingSubmitted, store.Booking("s1").Status)
	assert.Contains(t, resp.AnswerAI, "TRIPW-")
	assert.Contains(t, resp.AnswerAI, "not sent")
}

func TestHeuristicExtraction(t *testing.T) {
	fields := extractHeuristic("Tên: Lan, lan@example.com, 0905123456, 6 người lúc 19:30 nhà hàng Bông", core.LanguageVietnamese)
	assert.Equal(t, "lan@example.com", fields[core.SlotEmail])
	assert.Equal(t, "0905123456", fields[core.SlotPhone])
	assert.Equal(t, "6", fields[core.SlotPartySize])
	assert.Equal(t, "19:30", fields[core.SlotTime])
	assert.Equal(t, "Bông", fields[core.SlotRestaurant])
	assert.Equal(t, "Lan", fields[core.SlotName])
}

func TestHeuristicExtractionBareName(t *testing.T) {
	fields := extractHeuristic("Minh", core.LanguageEnglish)
	assert.Equal(t, "Minh", fields[core.SlotName])

	// Contact info in the same message disables the bare-name heuristic.
	fields = extractHeuristic("minh@x.com", core.LanguageEnglish)
	assert.Empty(t, fields[core.SlotName])

	// Confirmation words are never names.
	fields = extractHeuristic("ok", core.LanguageEnglish)
	assert.Empty(t, fields[core.SlotName])
}

func TestHeuristicTimeWords(t *testing.T) {
	fields := extractHeuristic("đặt bàn tối nay", core.LanguageVietnamese)
	assert.Equal(t, "tối nay", fields[core.SlotTime])
}
