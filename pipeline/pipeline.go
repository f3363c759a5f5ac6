// Package pipeline is the fixed-stage dialogue controller. Every turn runs
// validate, classify_intent, rewrite_to_standalone, route_to_agent,
// cta_or_clarify, enrich_language and format_response in that order, with
// two conditional exits: a platform validation failure short-circuits into a
// validation response, and a requested clarification skips agent routing.
// Whatever happens inside, the caller always receives a well-formed
// Response.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripwise/concierge/agent"
	"github.com/tripwise/concierge/booking"
	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/intent"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/resolver"
	"github.com/tripwise/concierge/session"
)

// Pipeline wires the classifier, resolver, booking machine and the two
// domain agents over one shared session store.
type Pipeline struct {
	store      *session.Store
	classifier *intent.Classifier
	resolver   *resolver.Resolver
	booking    *booking.Machine
	service    *agent.ServiceAgent
	qna        *agent.QnAAgent
	generator  model.Generator
	logger     logging.Logger
	window     int
}

// Options configure a Pipeline.
type Options struct {
	Classifier *intent.Classifier
	Resolver   *resolver.Resolver
	Booking    *booking.Machine
	Service    *agent.ServiceAgent
	QnA        *agent.QnAAgent
	// Generator powers the language enrichment stage; nil skips enrichment.
	Generator model.Generator
	Logger    logging.Logger
	// RecentWindow bounds the history bundled into classifier context.
	RecentWindow int
}

// New constructs a Pipeline over a session store. Components left nil in
// the options are built with their defaults on the same store.
func New(store *session.Store, optFns ...func(o *Options)) *Pipeline {
	opts := Options{Logger: logging.NoOpLogger{}, RecentWindow: 6}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.NewClassifier()
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.New(store)
	}
	if opts.Booking == nil {
		opts.Booking = booking.NewMachine(store)
	}
	if opts.Service == nil {
		opts.Service = agent.NewServiceAgent(nil)
	}
	if opts.QnA == nil {
		opts.QnA = agent.NewQnAAgent()
	}
	return &Pipeline{
		store:      store,
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		booking:    opts.Booking,
		service:    opts.Service,
		qna:        opts.QnA,
		generator:  opts.Generator,
		logger:     opts.Logger,
		window:     opts.RecentWindow,
	}
}

// Process runs one full pass. It never returns an error: every failure mode
// maps to a response per the error taxonomy.
func (p *Pipeline) Process(ctx context.Context, sessionID, message, platform, device, language string) *core.Response {
	// Stage 1: validate.
	pctx, err := core.NewPlatformContext(platform, device, language)
	if err != nil {
		p.logger.Warn("platform validation failed", "session_id", sessionID, "error", err)
		return validationResponse(err, language)
	}

	p.store.AddTurn(sessionID, core.NewTurn(core.RoleUser, message, nil))

	resp := p.run(ctx, sessionID, message, pctx)

	// Stage 7: format_response.
	normalize(resp)
	p.store.AddTurn(sessionID, core.NewTurn(core.RoleAssistant, resp.AnswerAI, map[string]string{
		"intent": resp.GetMeta(core.MetaIntent),
		"origin": resp.GetMeta(core.MetaOrigin),
	}))
	return resp
}

// run covers stages 2 through 6.
func (p *Pipeline) run(ctx context.Context, sessionID, message string, pctx core.PlatformContext) *core.Response {
	lang := pctx.Language

	// Stage 2: classify_intent, with the booking-continuation override.
	sctx := intent.Context{
		Recent:   p.store.Recent(sessionID, p.window),
		Entities: p.store.GetEntities(sessionID),
		Language: lang,
	}
	var result core.IntentResult
	if b := sctx.Entities.Booking; b.Active() && p.classifier.ShouldContinueBooking(ctx, message, b) {
		result = core.IntentResult{Intent: core.IntentBooking, Confidence: core.ConfidenceHigh, Reasoning: "active booking continuation"}
	} else {
		result = p.classifier.Classify(ctx, message, sctx)
	}

	// Stage 3: rewrite_to_standalone.
	resolved := p.resolver.Resolve(ctx, sessionID, message)

	// Conditional exit: a clarification request from either the classifier
	// or the resolver skips agent routing entirely.
	if result.NeedsClarification() {
		return clarifyResponse(result.Clarification, result.Intent, lang)
	}
	if resolved.Clarification != "" {
		return clarifyResponse(resolved.Clarification, result.Intent, lang)
	}

	// Stage 4: route_to_agent.
	resp := p.route(ctx, sessionID, resolved.Message, result, pctx)

	p.writeBackEntities(sessionID, resp, resolved)

	// Stage 5: cta_or_clarify.
	resp.CTA = ctaFor(pctx, resp.Services)

	// Stage 6: enrich_language.
	p.enrich(ctx, resp, lang)

	resp.SetMeta(core.MetaIntent, string(result.Intent))
	return resp
}

// route dispatches to exactly one domain agent.
func (p *Pipeline) route(ctx context.Context, sessionID, message string, result core.IntentResult, pctx core.PlatformContext) *core.Response {
	lang := pctx.Language

	var resp *core.Response
	var err error
	switch result.Intent {
	case core.IntentBooking:
		resp, err = p.booking.Handle(ctx, sessionID, message, pctx)
	case core.IntentService:
		resp, err = p.service.Handle(ctx, message, pctx)
	default:
		resp, err = p.qna.Handle(ctx, message, pctx)
	}
	if err != nil {
		p.logger.Error("agent call failed", "session_id", sessionID, "intent", result.Intent, "error", err)
		return agentErrorResponse(lang)
	}
	return resp
}

// writeBackEntities records the turn's top entity: the first returned place,
// or the resolved subject as the current topic.
func (p *Pipeline) writeBackEntities(sessionID string, resp *core.Response, resolved resolver.Result) {
	upd := core.EntityUpdate{}
	switch {
	case len(resp.Services) > 0:
		upd.CurrentPlace = resp.Services[0].Name
	case resolved.Resolved && resolved.Subject != "":
		upd.CurrentTopic = resolved.Subject
	default:
		return
	}
	p.store.UpdateEntitiesSafe(sessionID, upd, "pipeline")
}

const enrichTemplate = `Rewrite the reply below so it sounds warm and natural in the user's language (%s). Keep every fact, number, name and reference code exactly as written. Return only the rewritten reply.
Reply: %s`

// enrich rewords the answer for tone. The skip rule is a protocol contract:
// knowledge-base answers carrying citation sources are never reworded;
// booking and service responses, and booking-originated qna, are.
func (p *Pipeline) enrich(ctx context.Context, resp *core.Response, lang core.Language) {
	if p.generator == nil || !p.generator.IsConfigured() || resp.AnswerAI == "" {
		return
	}
	if !shouldEnrich(resp) {
		return
	}
	prompt := fmt.Sprintf(enrichTemplate, lang, resp.AnswerAI)
	out, err := p.generator.Generate(ctx, model.Request{Prompt: prompt, MaxTokens: 400, Temperature: 0.7})
	if err != nil || strings.TrimSpace(out) == "" {
		p.logger.Debug("language enrichment skipped", "error", err)
		return
	}
	resp.AnswerAI = strings.TrimSpace(out)
}

// shouldEnrich implements the enrichment protocol contract.
func shouldEnrich(resp *core.Response) bool {
	origin := resp.GetMeta(core.MetaOrigin)
	if origin == core.OriginKnowledge && len(resp.Sources) > 0 {
		return false
	}
	switch origin {
	case core.OriginBooking, core.OriginService, core.OriginKnowledge:
		return true
	}
	return resp.Type == core.ResponseService
}

// normalize guarantees the outward envelope shape.
func normalize(resp *core.Response) {
	if resp.Suggestions == nil {
		resp.Suggestions = []core.Suggestion{}
	}
	if resp.Type == "" {
		resp.Type = core.ResponseQnA
	}
	if len(resp.Services) > 0 && resp.Type != core.ResponseError {
		resp.Type = core.ResponseService
	}
}
