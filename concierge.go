// Package concierge is the high-level façade over the dialogue pipeline and
// its collaborators (session memory, intent classification, reference
// resolution, booking, discovery, notification). Most applications interact
// with this package by:
//  1. Creating a Concierge via New() (credentials picked up from Config)
//  2. Calling ProcessTurn for each user message
//  3. Using the admin operations for session visibility and cleanup
//
// All defaults are safe for local development: with no credentials
// configured every collaborator degrades to its deterministic fallback.
package concierge

import (
	"context"
	"sync"

	"github.com/tripwise/concierge/agent"
	"github.com/tripwise/concierge/booking"
	"github.com/tripwise/concierge/config"
	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/discovery"
	"github.com/tripwise/concierge/intent"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/model/anthropic"
	"github.com/tripwise/concierge/model/openai"
	"github.com/tripwise/concierge/notify"
	"github.com/tripwise/concierge/pipeline"
	"github.com/tripwise/concierge/resolver"
	"github.com/tripwise/concierge/session"
)

// Options configure a Concierge instance. Collaborators left nil are built
// from Config credentials, or replaced by deterministic fallbacks.
type Options struct {
	// Config supplies policy constants and credentials. Defaults to
	// config.Default() when nil.
	Config *config.Config

	// Generator overrides the text-generation collaborator (throttling is
	// still applied on top).
	Generator model.Generator
	// Finder overrides the discovery collaborator.
	Finder discovery.Finder
	// Notifier overrides the notification collaborator.
	Notifier notify.Notifier
	// KnowledgeBase backs the QnA agent. Nil means canned fallbacks only.
	KnowledgeBase agent.KnowledgeBase

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Concierge owns one session store and one pipeline, and serializes
// concurrent requests per session id.
type Concierge struct {
	cfg      *config.Config
	store    *session.Store
	pipeline *pipeline.Pipeline
	logger   logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Concierge with optional overrides.
func New(optFns ...func(o *Options)) *Concierge {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	generator := opts.Generator
	if generator == nil {
		generator = buildGenerator(cfg)
	}
	if generator != nil {
		generator = model.NewThrottled(generator, model.ThrottleOptions{
			MaxCallsPerMinute: cfg.MaxCallsPerMinute,
			MinSpacing:        cfg.MinCallSpacing,
			CacheTTL:          cfg.CacheTTL,
		})
	}

	finder := opts.Finder
	if finder == nil && cfg.PlacesBaseURL != "" {
		finder = discovery.NewHTTPFinder(cfg.PlacesBaseURL, func(o *discovery.HTTPOptions) {
			o.Token = cfg.PlacesToken
			o.Logger = opts.Logger
		})
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewMailer(cfg.ResendKey, func(o *notify.MailerOptions) {
			o.From = cfg.EmailFrom
			o.InquiryEmail = cfg.InquiryEmail
			o.Logger = opts.Logger
		})
	}

	store := session.NewStore(func(o *session.Options) {
		o.MaxTurns = cfg.MaxTurns
		o.TTL = cfg.SessionTTL
		o.Logger = opts.Logger
	})

	classifier := intent.NewClassifier(func(o *intent.Options) {
		o.Generator = generator
		o.Logger = opts.Logger
		o.RecentWindow = cfg.RecentWindow
	})
	res := resolver.New(store, func(o *resolver.Options) {
		o.Generator = generator
		o.Logger = opts.Logger
		o.RecentWindow = cfg.RecentWindow
	})
	machine := booking.NewMachine(store, func(o *booking.Options) {
		o.Generator = generator
		o.Finder = finder
		o.Notifier = notifier
		o.Logger = opts.Logger
		o.OffTopicThreshold = cfg.OffTopicThreshold
		o.MaxRecommendations = cfg.MaxRecommendations
	})
	serviceAgent := agent.NewServiceAgent(finder, func(o *agent.ServiceOptions) {
		o.Generator = generator
		o.Logger = opts.Logger
	})
	qnaAgent := agent.NewQnAAgent(func(o *agent.QnAOptions) {
		o.KnowledgeBase = opts.KnowledgeBase
		o.Generator = generator
		o.Logger = opts.Logger
	})

	p := pipeline.New(store, func(o *pipeline.Options) {
		o.Classifier = classifier
		o.Resolver = res
		o.Booking = machine
		o.Service = serviceAgent
		o.QnA = qnaAgent
		o.Generator = generator
		o.Logger = opts.Logger
		o.RecentWindow = cfg.RecentWindow
	})

	return &Concierge{
		cfg:      cfg,
		store:    store,
		pipeline: p,
		logger:   opts.Logger,
		locks:    map[string]*sync.Mutex{},
	}
}

// buildGenerator picks a provider from configured credentials, OpenAI first.
func buildGenerator(cfg *config.Config) model.Generator {
	if cfg.OpenAIKey != "" {
		return openai.NewGenerator(func(o *openai.Options) { o.APIKey = cfg.OpenAIKey })
	}
	if cfg.AnthropicKey != "" {
		return anthropic.NewGenerator(func(o *anthropic.Options) { o.APIKey = cfg.AnthropicKey })
	}
	return nil
}

// ProcessTurn runs one utterance through the pipeline. Requests against the
// same session id are serialized (last-write-wins by arrival order); other
// sessions proceed in parallel. The result is always a well-formed response,
// whatever failed inside.
func (c *Concierge) ProcessTurn(ctx context.Context, sessionID, message, platform, device, language string) (resp *core.Response) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("pipeline panic recovered", "session_id", sessionID, "panic", r)
			resp = pipeline.FallbackResponse(core.Language(language))
		}
	}()

	if timeout := c.cfg.GenerateTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return c.pipeline.Process(ctx, sessionID, message, platform, device, language)
}

// SessionStats reports store-level counters.
func (c *Concierge) SessionStats() map[string]any {
	return c.store.Stats()
}

// ClearSession removes one session, reporting whether it existed.
func (c *Concierge) ClearSession(id string) bool {
	return c.store.Clear(id)
}

// ClearAllSessions removes every session and returns how many were dropped.
func (c *Concierge) ClearAllSessions() int {
	return c.store.ClearAll()
}

func (c *Concierge) sessionLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}
