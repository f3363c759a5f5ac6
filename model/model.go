// Package model defines the text-generation collaborator boundary. The
// engine never talks to a provider SDK directly; it depends on the small
// Generator interface so deterministic fallbacks and tests can stand in for
// a real model. Provider adapters live in the openai and anthropic
// subpackages; Throttled adds rate limiting and response caching on top of
// any Generator.
package model

import (
	"context"
	"strings"
	"sync"
)

// Request captures one prompt for the text-generation collaborator.
// Zero values for MaxTokens/Temperature mean "use the adapter default".
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Generator is the minimal interface required by the dialogue stages.
// Generate returns the completion text; implementations must return an
// error (never panic) on provider failure so callers can fall back.
// IsConfigured reports whether real calls can be attempted at all.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
	Info() Info
}

// MockGenerator is a lightweight in-memory Generator useful for tests. It
// matches canned responses first by exact prompt, then by registered
// substring rules in insertion order.
type MockGenerator struct {
	mu         sync.Mutex
	info       Info
	exact      map[string]string
	rules      []mockRule
	calls      int
	configured bool
	err        error
}

type mockRule struct {
	substr   string
	response string
}

// NewMockGenerator constructs a configured MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		info:       Info{Name: "mock", Provider: "mock"},
		exact:      map[string]string{},
		configured: true,
	}
}

// AddResponse registers a deterministic canned completion for an exact prompt.
func (m *MockGenerator) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[prompt] = response
}

// AddRule registers a canned completion for any prompt containing substr.
func (m *MockGenerator) AddRule(substr, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{substr: substr, response: response})
}

// FailWith makes every subsequent Generate call return err.
func (m *MockGenerator) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetConfigured toggles the IsConfigured report.
func (m *MockGenerator) SetConfigured(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = v
}

// Calls returns how many Generate calls were made.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if resp, ok := m.exact[req.Prompt]; ok {
		return resp, nil
	}
	for _, r := range m.rules {
		if strings.Contains(req.Prompt, r.substr) {
			return r.response, nil
		}
	}
	return "", nil
}

// IsConfigured implements Generator.
func (m *MockGenerator) IsConfigured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return m.info }
