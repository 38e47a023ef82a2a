// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text-completion backends used to generate and repair
// document plans: the hosted Claude Messages API and a local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// TextProvider abstracts the completion API so tests can supply a mock.
type TextProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompletionRequest is one prompt sent to a TextProvider.
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // overrides the backend default when set
	MaxTokens int    // overrides the backend default when > 0

	// JSON asks backends that support it to constrain output to JSON.
	JSON bool
}

// Usage counts tokens consumed by one completion.
type Usage struct {
	InputTokens  int `json:"inputTokens" yaml:"input_tokens"`
	OutputTokens int `json:"outputTokens" yaml:"output_tokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Completion is the generated text plus usage.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// ErrEmptyCompletion is returned when a provider answers without text.
var ErrEmptyCompletion = errors.New("provider returned no text")

// HTTPError is a non-success response from a provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, body)
}

// HTTPStatusCode exposes the status for httputil.IsRetryableError.
func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// IsContentPolicy reports whether err is a provider refusal on policy
// grounds. Anthropic and OpenAI-compatible servers report these as 400 with
// a recognisable body.
func IsContentPolicy(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		return false
	}
	b := strings.ToLower(he.Body)
	return strings.Contains(b, "content_policy") || strings.Contains(b, "content policy") || strings.Contains(b, "safety")
}

// New constructs the TextProvider selected by cfg.Backend.
func New(cfg types.TextConfig) (TextProvider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Backend {
	case types.TextBackendOllama:
		return &OllamaBackend{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			MaxRetries: cfg.MaxRetries,
			Client:     client,
		}, nil
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend requires an API key (set .secrets/anthropic-api-key or ANTHROPIC_API_KEY)")
		}
		return &ClaudeBackend{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			MaxRetries: cfg.MaxRetries,
			UserAgent:  cfg.UserAgent,
			Client:     client,
		}, nil
	}
}
