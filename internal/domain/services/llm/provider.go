package llm

import (
	"context"
)

// Provider is a streaming text-generation backend (OpenAI, Anthropic, lorem).
type Provider interface {
	// StreamResponse starts a completion and returns a channel of text chunks.
	// The channel is closed when the stream ends; a failure is delivered as a final chunk with Err set.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamChunk, error)

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// GenerateRequest is a single system + user prompt completion request.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// StreamChunk is one piece of streamed output.
type StreamChunk struct {
	Text string
	Err  error
}

// ChildGenerator asks a backend for the children of a node.
//
// prompt carries extra requirements (may be empty); parentContext is the lineage text of the
// node ("Root Topic > Subtopic"). The returned stream follows the marker-tag grammar.
type ChildGenerator interface {
	GenerateChildren(ctx context.Context, prompt, parentContext string) (<-chan StreamChunk, error)
	// Provider names the backend, for logs and metrics.
	Provider() string
}
