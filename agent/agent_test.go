package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/model"
)

func webEN() core.PlatformContext {
	return core.PlatformContext{Platform: core.PlatformWebBrowser, Device: core.DeviceDesktop, Language: core.LanguageEnglish}
}

type failingFinder struct{}

func (failingFinder) Search(context.Context, string, discovery.Filters) ([]core.Service, error) {
	return nil, errors.New("upstream down")
}
func (failingFinder) Sources() []core.Source { return nil }

func TestServiceAgentReturnsRankedServices(t *testing.T) {
	finder := &discovery.StaticFinder{Places: []core.Service{
		{ID: 1, Name: "Madame Lan", Type: "restaurant", Rating: 4.5},
		{ID: 2, Name: "Nen Danang", Type: "restaurant", Rating: 4.8},
	}}
	a := NewServiceAgent(finder)

	resp, err := a.Handle(context.Background(), "good restaurants in da nang", webEN())
	require.NoError(t, err)
	assert.Equal(t, core.ResponseService, resp.Type)
	require.Len(t, resp.Services, 2)
	assert.Equal(t, "Nen Danang", resp.Services[0].Name)
	assert.NotEmpty(t, resp.AnswerAI)
	assert.Equal(t, core.OriginService, resp.GetMeta(core.MetaOrigin))
}

func TestServiceAgentEmptyResultIsNotAnError(t *testing.T) {
	a := NewServiceAgent(&discovery.StaticFinder{})

	resp, err := a.Handle(context.Background(), "restaurants on the moon", webEN())
	require.NoError(t, err)
	assert.Equal(t, core.ResponseQnA, resp.Type)
	assert.Empty(t, resp.Services)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestServiceAgentWrapsFinderFailure(t *testing.T) {
	a := NewServiceAgent(failingFinder{})

	_, err := a.Handle(context.Background(), "restaurants nearby", webEN())
	require.Error(t, err)
	assert.True(t, core.IsAgent(err))
}

func TestServiceAgentUsesGeneratorWording(t *testing.T) {
	finder := &discovery.StaticFinder{Places: []core.Service{{ID: 1, Name: "Madame Lan", Rating: 4.5}}}
	gen := model.NewMockGenerator()
	gen.AddRule("travel concierge", "Great news, Madame Lan is a local favorite!")
	a := NewServiceAgent(finder, func(o *ServiceOptions) { o.Generator = gen })

	resp, err := a.Handle(context.Background(), "dinner spots", webEN())
	require.NoError(t, err)
	assert.Equal(t, "Great news, Madame Lan is a local favorite!", resp.AnswerAI)
}

func TestDetectServiceType(t *testing.T) {
	assert.Equal(t, "hotel", detectServiceType("khách sạn gần biển"))
	assert.Equal(t, "tour", detectServiceType("day tour to Ba Na Hills"))
	assert.Equal(t, "restaurant", detectServiceType("somewhere to eat"))
}

func TestQnAAgentPrefersKnowledgeBase(t *testing.T) {
	kb := &StaticKnowledgeBase{Entries: map[string]Answer{
		"hoi an": {
			Text:    "Hoi An is a UNESCO World Heritage old town.",
			Sources: []core.Source{{Title: "Travel Guide", URL: "https://tripwise.ai/guide/hoi-an"}},
		},
	}}
	a := NewQnAAgent(func(o *QnAOptions) { o.KnowledgeBase = kb })

	resp, err := a.Handle(context.Background(), "Tell me about Hoi An", webEN())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "UNESCO")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, core.OriginKnowledge, resp.GetMeta(core.MetaOrigin))
}

func TestQnAAgentGeneratorFallback(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.AddRule("knowledgeable travel concierge", "My Khe beach is about 3 km from the city center.")
	a := NewQnAAgent(func(o *QnAOptions) { o.Generator = gen })

	resp, err := a.Handle(context.Background(), "How far is My Khe beach?", webEN())
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "My Khe")
	assert.Empty(t, resp.Sources)
}

func TestQnAAgentCannedFallback(t *testing.T) {
	a := NewQnAAgent()

	resp, err := a.Handle(context.Background(), "xin chào", core.PlatformContext{
		Platform: core.PlatformWebBrowser, Device: core.DeviceDesktop, Language: core.LanguageVietnamese,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.AnswerAI, "TripWise")
	assert.NotEmpty(t, resp.Suggestions)
}
