// Package openai provides an implementation of model.Generator using the
// OpenAI Chat Completions API. It adapts the engine's single-prompt Request
// into the SDK's message format and extracts the first choice's text.
package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tripwise/concierge/model"
)

// Options configure the OpenAI generator adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Generator wraps the OpenAI Chat Completions API behind the generic
// model.Generator interface.
type Generator struct {
	client     *openaisdk.Client
	opts       Options
	configured bool
}

// NewGenerator creates a new OpenAI generator using the official client.
// When no API key is available the generator reports unconfigured and
// callers should use their deterministic fallback.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openaisdk.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts, configured: opts.APIKey != ""}
}

// NewGeneratorFromClient creates a new OpenAI generator from an existing client.
func NewGeneratorFromClient(client *openaisdk.Client, optFns ...func(o *Options)) *Generator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts, configured: true}
}

func defaultOptions() Options {
	return Options{
		Model:       openaisdk.ChatModelGPT4oMini,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// Generate implements model.Generator with a non-streaming completion.
func (g *Generator) Generate(ctx context.Context, req model.Request) (string, error) {
	temperature := g.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := g.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(req.Prompt),
		},
		Model:               g.opts.Model,
		Temperature:         openaisdk.Float(temperature),
		MaxCompletionTokens: openaisdk.Int(maxTokens),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsConfigured reports whether real API calls can be attempted.
func (g *Generator) IsConfigured() bool { return g.configured }

// Info returns metadata describing this OpenAI generator.
func (g *Generator) Info() model.Info {
	return model.Info{Name: g.opts.Model, Provider: "openai"}
}
