// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the stage 1 driver and speaker-ID
// stage send correct CompletionRequests and to feed controlled responses
// without a live LLM backend.
package mock

import (
	"context"
	"sync"

	"github.com/kieronlawson/diatribe/pkg/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Zero values for response
// fields cause methods to return zero values and nil errors. Set Err fields
// to inject errors. Responses can be queued: each call to Complete consumes
// the next entry in CompleteResponses, falling back to CompleteResponse (or
// CompleteErr) once the queue is drained.
type Provider struct {
	mu sync.Mutex

	// CompleteResponses is consumed in order, one response per call.
	CompleteResponses []*llm.CompletionResponse

	// CompleteResponse is returned once CompleteResponses is exhausted.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// TokenCount is returned by CountTokens.
	TokenCount int

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities llm.ModelCapabilities

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// StreamCompletion is not used by the correction pipeline; it returns a
// closed channel with no chunks.
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk)
	close(ch)
	return ch, nil
}

// Complete records the call and returns the next queued response (or the
// default CompleteResponse), and CompleteErr.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if len(p.CompleteResponses) > 0 {
		resp := p.CompleteResponses[0]
		p.CompleteResponses = p.CompleteResponses[1:]
		return resp, nil
	}
	return p.CompleteResponse, nil
}

// CountTokens returns TokenCount for any input.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	return p.TokenCount, nil
}

// Capabilities returns ModelCapabilities.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.ModelCapabilities
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
