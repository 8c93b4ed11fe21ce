package llm

import (
	"context"
	"errors"
)

// Generator is the text-generation capability: a prompt in, best-effort prose out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var (
	// ErrNotConfigured is returned by the placeholder generator.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("llm response empty content")
)

// Placeholder stands in when no provider is configured.
type Placeholder struct{}

// Generate returns ErrNotConfigured.
func (Placeholder) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
