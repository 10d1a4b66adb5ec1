// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate produces OpenAPI documents for an API identifier.
// The Generator interface is the seam between the evaluation runner and
// whatever pipeline writes specs: a fixed stub for harness testing, LLM
// backends, or a remote generation service.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Generator produces a document for an API identifier. Implementations
// return a placeholder document with no paths for identifiers they do not
// know rather than an error.
type Generator interface {
	// Name identifies the variant; it is recorded on every result.
	Name() string

	Generate(ctx context.Context, api string) (types.Document, error)
}

// Error reports a generator failure for one API.
type Error struct {
	API     string
	Variant string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s generator failed for %s: %v", e.Variant, e.API, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	defaultTimeout   = 2 * time.Minute
	defaultUserAgent = "specgrade/0.1"
	defaultMaxTokens = 8192
	defaultRetries   = 3

	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	defaultOpenAIModel = "gpt-4o"
)

// New returns the Generator selected by cfg.Variant. An empty variant
// selects the stub. Missing credentials or an unknown variant are
// configuration errors.
func New(cfg types.GeneratorConfig) (Generator, error) {
	switch cfg.Variant {
	case types.GeneratorStub, "":
		return NewStub(), nil

	case types.GeneratorClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: claude generator requires an API key (anthropic-api-key secret)", types.ErrConfiguration)
		}
		if cfg.Model == "" {
			cfg.Model = defaultClaudeModel
		}
		return NewLLM(string(types.GeneratorClaude), NewClaudeCompleter(cfg.AIConfig), cfg), nil

	case types.GeneratorOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai generator requires an API key (openai-api-key secret)", types.ErrConfiguration)
		}
		if cfg.Model == "" {
			cfg.Model = defaultOpenAIModel
		}
		return NewLLM(string(types.GeneratorOpenAI), NewOpenAICompleter(cfg.AIConfig), cfg), nil

	case types.GeneratorRemote:
		if cfg.PipelineURL == "" {
			return nil, fmt.Errorf("%w: remote generator requires pipeline_url", types.ErrConfiguration)
		}
		return NewRemote(cfg), nil

	default:
		return nil, fmt.Errorf("%w: unknown generator variant %q: use stub, claude, openai, or remote",
			types.ErrConfiguration, cfg.Variant)
	}
}

func httpClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func userAgent(cfg types.HTTPConfig) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return defaultUserAgent
}
