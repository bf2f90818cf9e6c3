package llm

import (
	"context"
	"errors"
)

// Client abstracts text-generation providers for document analysis.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyResponse is returned when the provider replies successfully but
// with an empty payload. Callers treat it like any other transient failure.
var ErrEmptyResponse = errors.New("inference returned empty response")

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is a stub implementation used when no provider is wired.
type PlaceholderClient struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderClient) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
