// Package resolver rewrites anaphoric utterances ("what's there?") into
// standalone form using session memory, so downstream agents never see a
// dangling pronoun. Resolution is heuristic-first with a collaborator
// fallback, and never aborts the turn: on any failure the original message
// passes through unchanged.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripwise/concierge/core"
	"github.com/tripwise/concierge/internal/llmjson"
	"github.com/tripwise/concierge/logging"
	"github.com/tripwise/concierge/model"
	"github.com/tripwise/concierge/session"
)

// Pronoun tokens that trigger substitution, longest first so "ở đó" wins
// over "đó".
var pronounTokens = []string{
	"ở đó", "chỗ đó", "chỗ đấy", "ở đấy", "nơi đó", "đó", "đấy", "nó",
	"over there", "that place", "there", "it",
}

// Result is the outcome of one resolution pass. Exactly one of Message and
// Clarification is meaningful: a non-empty Clarification means the resolver
// could not rewrite and wants the user to disambiguate.
type Result struct {
	Message       string
	Clarification string
	Resolved      bool
	Subject       string
}

// Resolver rewrites utterances against a session's entity map.
type Resolver struct {
	store     *session.Store
	generator model.Generator
	logger    logging.Logger
	window    int
}

// Options configure a Resolver.
type Options struct {
	Generator    model.Generator
	Logger       logging.Logger
	RecentWindow int
}

// New constructs a Resolver bound to a session store.
func New(store *session.Store, optFns ...func(o *Options)) *Resolver {
	opts := Options{Logger: logging.NoOpLogger{}, RecentWindow: 6}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Resolver{store: store, generator: opts.Generator, logger: opts.Logger, window: opts.RecentWindow}
}

// Resolve returns message rewritten into standalone form. Already-standalone
// input comes back unchanged (idempotent). A successful rewrite persists the
// resolved subject into the entity map for future turns.
func (r *Resolver) Resolve(ctx context.Context, sessionID, message string) Result {
	token := findPronoun(message)
	if token == "" {
		return Result{Message: message}
	}

	ents := r.store.GetEntities(sessionID)
	subject := pickAntecedent(ents)
	if subject == "" {
		subject = lastUserUtterance(r.store.Recent(sessionID, r.window), message)
	}

	if subject != "" {
		rewritten := substitute(message, token, subject)
		r.store.UpdateEntitiesSafe(sessionID, core.EntityUpdate{LastSubject: subject}, "resolver")
		r.logger.Debug("anaphora resolved", "session_id", sessionID, "subject", subject)
		return Result{Message: rewritten, Resolved: true, Subject: subject}
	}

	return r.resolveWithCollaborator(ctx, sessionID, message)
}

// pickAntecedent walks the subject fields in resolution priority order.
func pickAntecedent(e core.EntityMap) string {
	for _, candidate := range []string{e.CurrentPlace, e.LastMentionedPlace, e.CurrentTopic, e.LastSubject} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// lastUserUtterance returns the most recent prior user turn, skipping the
// in-flight message when the caller already appended it to history.
func lastUserUtterance(turns []core.Turn, current string) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == core.RoleUser && turns[i].Content != current {
			return turns[i].Content
		}
	}
	return ""
}

func findPronoun(message string) string {
	m := strings.ToLower(message)
	for _, tok := range pronounTokens {
		if containsToken(m, tok) {
			return tok
		}
	}
	return ""
}

// containsToken matches tok on word boundaries so "it" never fires inside
// "visit".
func containsToken(m, tok string) bool {
	idx := 0
	for {
		i := strings.Index(m[idx:], tok)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || isBoundary(rune(m[i-1]))
		afterIdx := i + len(tok)
		after := afterIdx >= len(m) || isBoundary(rune(m[afterIdx]))
		if before && after {
			return true
		}
		idx = i + len(tok)
	}
}

func isBoundary(r rune) bool {
	return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' || r == ':' || r == ';' || r == '\'' || r == '"'
}

func substitute(message, token, subject string) string {
	lower := strings.ToLower(message)
	i := strings.Index(lower, token)
	if i < 0 {
		return message
	}
	return message[:i] + subject + message[i+len(token):]
}

const resolveTemplate = `The user's latest message contains a reference to something mentioned earlier, but the conversation memory has no obvious antecedent.

Recent conversation:
%s

Latest message: "%s"

Return one JSON object, no extra text, with exactly one of the two fields filled:
{"rewritten": "<the message rewritten as a standalone query>", "clarification": "<a short question asking what the user refers to>"}`

type resolvePayload struct {
	Rewritten     string `json:"rewritten"`
	Clarification string `json:"clarification"`
}

func (r *Resolver) resolveWithCollaborator(ctx context.Context, sessionID, message string) Result {
	passthrough := Result{Message: message}
	if r.generator == nil || !r.generator.IsConfigured() {
		return passthrough
	}

	var sb strings.Builder
	for _, t := range r.store.Recent(sessionID, r.window) {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
	}
	p := fmt.Sprintf(resolveTemplate, sb.String(), message)

	raw, err := r.generator.Generate(ctx, model.Request{Prompt: p, MaxTokens: 150, Temperature: 0.2})
	if err != nil || raw == "" {
		return passthrough
	}
	var payload resolvePayload
	if err := llmjson.Decode(raw, &payload); err != nil {
		return passthrough
	}

	// Exactly one of the two, never both. A payload carrying both is
	// treated as a rewrite.
	if rw := strings.TrimSpace(payload.Rewritten); rw != "" {
		r.store.UpdateEntitiesSafe(sessionID, core.EntityUpdate{LastSubject: rw}, "resolver")
		return Result{Message: rw, Resolved: true, Subject: rw}
	}
	if cl := strings.TrimSpace(payload.Clarification); cl != "" {
		return Result{Message: message, Clarification: cl}
	}
	return passthrough
}
