// Package llm is the provider-neutral client used for structured, single-turn
// completions. Every provider returns JSON validated against the request schema
package llm

import (
	"context"
	"encoding/json"
)

// Provider completes a prompt and returns schema-validated JSON
type Provider interface {
	Complete(ctx context.Context, p Prompt) (*Reply, error)

	// Name is the configured provider, e.g. "anthropic"
	Name() string

	// Model is the model identifier requests are sent to
	Model() string
}

// Prompt is one structured request
type Prompt struct {
	System string
	User   string

	// Schema, when set, is passed to the provider's native structured output
	// mode and the reply is validated against it
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Schema names a JSON Schema definition
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Reply is a completed prompt
type Reply struct {
	Content json.RawMessage
	Model   string
	Usage   Usage

	// Stop is "end" or "max_tokens"
	Stop string
}

// Usage is the token accounting for one reply
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total sums input and output tokens
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Decode unmarshals a reply's content into v
func Decode(r *Reply, v any) error {
	if r == nil {
		return &InvalidReplyError{Err: errEmptyReply}
	}
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &InvalidReplyError{Content: r.Content, Err: err}
	}
	return nil
}

func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
