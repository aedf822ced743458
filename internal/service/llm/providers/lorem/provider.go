package lorem

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "outliner/internal/domain/services/llm"
	"outliner/internal/service/llm/parser"
)

// Provider is a mock backend that answers every request with 4-6 lorem ipsum children in the
// marker-tag grammar. Used for development and tests without API keys.
type Provider struct {
	mu        sync.Mutex // golorem keeps unsynchronised state
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-instant"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-instant: no delay
// - lorem-slow: 2 words/second (500ms per word)
// - lorem-fast: 30 words/second (33ms per word)
// - default: 10 words/second
func getStreamDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "instant"):
		return 0
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 33 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

// isBrokenModel returns true if the model should fail halfway through the stream.
func isBrokenModel(model string) bool {
	return strings.Contains(model, "broken")
}

// StreamResponse streams the generated listing word by word.
// lorem-broken models emit half of the listing and then fail, to exercise error handling.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamChunk, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	words := strings.SplitAfter(p.listing(), " ")
	delay := getStreamDelay(req.Model)
	failAt := -1
	if isBrokenModel(req.Model) {
		failAt = len(words) / 2
	}

	chunks := make(chan domainllm.StreamChunk, 10)

	go func() {
		defer close(chunks)

		for i, word := range words {
			if i == failAt {
				chunks <- domainllm.StreamChunk{Err: fmt.Errorf("lorem: simulated transport failure")}
				return
			}

			select {
			case <-ctx.Done():
				chunks <- domainllm.StreamChunk{Err: ctx.Err()}
				return
			case chunks <- domainllm.StreamChunk{Text: word}:
			}

			if delay > 0 {
				select {
				case <-ctx.Done():
					chunks <- domainllm.StreamChunk{Err: ctx.Err()}
					return
				case <-time.After(delay):
				}
			}
		}
	}()

	return chunks, nil
}

// listing renders 4-6 short lorem titles as a children block.
func (p *Provider) listing() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 4 + rand.IntN(3)
	var sb strings.Builder
	sb.WriteString(parser.BeginChildren)
	sb.WriteString("\n")
	for i := 0; i < count; i++ {
		title := strings.TrimSuffix(p.generator.Sentence(2, 5), ".")
		sb.WriteString("  ")
		sb.WriteString(parser.BeginNode)
		sb.WriteString(title)
		sb.WriteString(parser.EndNode)
		sb.WriteString("\n")
	}
	sb.WriteString(parser.EndChildren)
	return sb.String()
}
