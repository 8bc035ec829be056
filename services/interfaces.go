package services

import (
	"context"
)

// CompletionRequest is a single-turn chat completion sent with a stored API key
type CompletionRequest struct {
	APIKey      string
	Model       string
	Content     string
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the assistant reply and the provider-reported token usage.
// TotalTokens is zero when the provider omitted usage.
type CompletionResult struct {
	Content     string
	TotalTokens int64
}

// CompletionProvider defines the interface for chat-completion calls
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Compile-time interface verification
var _ CompletionProvider = (*ProviderService)(nil)
