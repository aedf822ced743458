// Package anthropic streams children listings from Claude models.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domainllm "outliner/internal/domain/services/llm"
)

// defaultMaxTokens bounds a children listing; the grammar keeps responses short.
const defaultMaxTokens = 1024

type Provider struct {
	client anthropic.Client
}

// NewProvider creates a provider for apiKey. baseURL points the client at a proxy; empty
// uses the public API.
func NewProvider(apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: anthropic.NewClient(opts...)}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel accepts claude-* models.
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// StreamResponse opens a Messages stream and forwards text deltas. The returned channel is
// closed after the last delta or after a single error chunk.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamChunk, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	chunks := make(chan domainllm.StreamChunk, 10)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for stream.Next() {
			delta, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok || delta.Delta.Text == "" {
				// message_start, content_block_start/stop, message_delta, message_stop
				continue
			}
			select {
			case <-ctx.Done():
				select {
				case chunks <- domainllm.StreamChunk{Err: ctx.Err()}:
				default:
				}
				return
			case chunks <- domainllm.StreamChunk{Text: delta.Delta.Text}:
			}
		}
		if err := stream.Err(); err != nil {
			chunks <- domainllm.StreamChunk{Err: fmt.Errorf("anthropic streaming error: %w", err)}
		}
	}()

	return chunks, nil
}
