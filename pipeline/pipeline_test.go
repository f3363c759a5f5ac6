package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwise/concierge/agent"
	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/intent"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/session"
)

func newTestPipeline(store *session.Store, optFns ...func(o *Options)) *Pipeline {
	return New(store, optFns...)
}

func TestInvalidPlatformShortCircuits(t *testing.T) {
	store := session.NewStore()
	p := newTestPipeline(store)

	resp := p.Process(context.Background(), "s1", "hello", "mobile_app", "desktop", "en")
	require.NotNil(t, resp)
	assert.Equal(t, core.ResponseError, resp.Type)
	assert.NotEmpty(t, resp.AnswerAI)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "retry", resp.Suggestions[0].Action)

	// No turn is recorded for a rejected request.
	assert.Empty(t, store.Recent("s1", 0))
}

func TestBookingIntentRoutesToMachine(t *testing.T) {
	store := session.NewStore()
	p := newTestPipeline(store)

	resp := p.Process(context.Background(), "s1", "book a table", "web_browser", "desktop", "en")
	assert.Equal(t, string(core.IntentBooking), resp.GetMeta(core.MetaIntent))
	assert.Contains(t, resp.AnswerAI, "RESTAURANT")
	assert.True(t, store.Booking("s1").Active())
}

func TestActiveBookingOverridesClassifier(t *testing.T) {
	store := session.NewStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	p.Process(ctx, "s1", "book a table at 'Madame Lan'", "web_browser", "desktop", "en")
	// "4 people at 19:00" has no booking keyword; the continuation override
	// must still route it to the machine.
	p.Process(ctx, "s1", "4 people at 19:00", "web_browser", "desktop", "en")

	state := store.Booking("s1")
	assert.Equal(t, "4", state.PartySize)
	assert.Equal(t, "19:00", state.Time)
}

func TestServiceIntentReturnsServicesAndWritesBackPlace(t *testing.T) {
	store := session.NewStore()
	finder := &discovery.StaticFinder{Places: []core.Service{
		{ID: 1, Name: "Madame Lan", Type: "restaurant", Rating: 4.5},
		{ID: 2, Name: "Nen Danang", Type: "restaurant", Rating: 4.8},
	}}
	p := newTestPipeline(store, func(o *Options) {
		o.Service = agent.NewServiceAgent(finder)
	})

	resp := p.Process(context.Background(), "s1", "find me a good restaurant", "web_browser", "desktop", "en")
	assert.Equal(t, core.ResponseService, resp.Type)
	require.NotEmpty(t, resp.Services)
	assert.Equal(t, "Nen Danang", store.GetEntities("s1").CurrentPlace)
}

func TestCTAAttachedPerPlatform(t *testing.T) {
	store := session.NewStore()
	finder := &discovery.StaticFinder{Places: []core.Service{{ID: 7, Name: "Madame Lan", Type: "restaurant", Rating: 4.5}}}
	p := newTestPipeline(store, func(o *Options) {
		o.Service = agent.NewServiceAgent(finder)
	})
	ctx := context.Background()

	web := p.Process(ctx, "s1", "find a restaurant", "web_browser", "android", "en")
	require.NotNil(t, web.CTA)
	assert.NotEmpty(t, web.CTA.URL)
	assert.Empty(t, web.CTA.Deeplink)

	app := p.Process(ctx, "s2", "find a restaurant", "mobile_app", "ios", "en")
	require.NotNil(t, app.CTA)
	assert.Equal(t, "tripwise://restaurant/7", app.CTA.Deeplink)
}

func TestClarificationSkipsAgentRouting(t *testing.T) {
	store := session.NewStore()
	gen := model.NewMockGenerator()
	gen.AddRule("intent classifier", `{"intent":"service","confidence":"low","reasoning":"ambiguous","clarification_question":"Do you want to find a place or book one?"}`)
	p := newTestPipeline(store, func(o *Options) {
		o.Classifier = intent.NewClassifier(func(co *intent.Options) { co.Generator = gen })
	})

	resp := p.Process(context.Background(), "s1", "maybe something nice", "web_browser", "desktop", "en")
	assert.Equal(t, "Do you want to find a place or book one?", resp.AnswerAI)
	assert.Equal(t, core.OriginClarify, resp.GetMeta(core.MetaOrigin))
	// No booking was started and no service lookup happened.
	assert.False(t, store.Booking("s1").Active())
	assert.Empty(t, resp.Services)
	assert.Len(t, resp.Suggestions, 3)
}

func TestPronounResolvedAgainstCurrentPlace(t *testing.T) {
	store := session.NewStore()
	store.UpdateEntitiesSafe("s1", core.EntityUpdate{CurrentPlace: "Hoi An"}, "test")
	kb := &agent.StaticKnowledgeBase{Entries: map[string]agent.Answer{
		"hoi an": {Text: "Hoi An is famous for its lantern-lit old town."},
	}}
	p := newTestPipeline(store, func(o *Options) {
		o.QnA = agent.NewQnAAgent(func(qo *agent.QnAOptions) { qo.KnowledgeBase = kb })
	})

	resp := p.Process(context.Background(), "s1", "What's there?", "web_browser", "desktop", "en")
	assert.Contains(t, resp.AnswerAI, "lantern")
	assert.Equal(t, "Hoi An", store.GetEntities("s1").LastSubject)
}

func TestEnrichmentSkipsCitedKnowledgeAnswers(t *testing.T) {
	store := session.NewStore()
	kb := &agent.StaticKnowledgeBase{Entries: map[string]agent.Answer{
		"hoi an": {
			Text:    "Hoi An is a UNESCO World Heritage town.",
			Sources: []core.Source{{Title: "Guide", URL: "https://tripwise.ai/guide"}},
		},
	}}
	gen := model.NewMockGenerator()
	gen.AddRule("Rewrite the reply", "REWRITTEN")
	p := newTestPipeline(store, func(o *Options) {
		o.QnA = agent.NewQnAAgent(func(qo *agent.QnAOptions) { qo.KnowledgeBase = kb })
		o.Generator = gen
	})

	resp := p.Process(context.Background(), "s1", "tell me about hoi an", "web_browser", "desktop", "en")
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "Hoi An is a UNESCO World Heritage town.", resp.AnswerAI)
}

func TestEnrichmentAppliesToServiceResponses(t *testing.T) {
	store := session.NewStore()
	finder := &discovery.StaticFinder{Places: []core.Service{{ID: 1, Name: "Madame Lan", Rating: 4.5}}}
	gen := model.NewMockGenerator()
	gen.AddRule("Rewrite the reply", "Here are some lovely spots for you!")
	p := newTestPipeline(store, func(o *Options) {
		o.Service = agent.NewServiceAgent(finder)
		o.Generator = gen
	})

	resp := p.Process(context.Background(), "s1", "find a restaurant", "web_browser", "desktop", "en")
	assert.Equal(t, "Here are some lovely spots for you!", resp.AnswerAI)
}

func TestEnrichmentAppliesToBookingResponses(t *testing.T) {
	store := session.NewStore()
	gen := model.NewMockGenerator()
	gen.AddRule("Rewrite the reply", "Lovely! Which restaurant shall I book for you?")
	p := newTestPipeline(store, func(o *Options) { o.Generator = gen })

	resp := p.Process(context.Background(), "s1", "book a table", "web_browser", "desktop", "en")
	assert.Equal(t, "Lovely! Which restaurant shall I book for you?", resp.AnswerAI)
}

func TestUnmatchedMessageFallsThroughToQnA(t *testing.T) {
	store := session.NewStore()
	p := newTestPipeline(store)

	resp := p.Process(context.Background(), "s1", "xin chao", "web_browser", "desktop", "vi")
	assert.Equal(t, string(core.IntentQnA), resp.GetMeta(core.MetaIntent))
	assert.NotEmpty(t, resp.AnswerAI)
	assert.NotNil(t, resp.Suggestions)
}

func TestTurnsRecordedForBothRoles(t *testing.T) {
	store := session.NewStore()
	p := newTestPipeline(store)

	p.Process(context.Background(), "s1", "book a table", "web_browser", "desktop", "en")
	turns := store.Recent("s1", 0)
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
}
