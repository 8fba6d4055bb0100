package llm

import (
	"context"
	"sync"

	"github.com/sherifkozman/red-council/internal/types"
)

// MockProvider implements Provider for testing and dry runs. It cycles
// through its canned responses and records every call.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	index     int
	calls     []CompletionRequest

	// Err, when set, is returned by every Complete call.
	Err error
}

// NewMockProvider creates a mock provider with canned responses.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{responses: responses}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete records the call and returns the next canned response.
func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.responses) == 0 {
		return nil, types.NewError(types.LLM_REQUEST_FAILED, "mock provider has no responses")
	}

	response := p.responses[p.index%len(p.responses)]
	p.index++
	return &CompletionResponse{Content: response, Model: "mock-model"}, nil
}

// Calls returns a copy of all recorded requests.
func (p *MockProvider) Calls() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]CompletionRequest, len(p.calls))
	copy(cp, p.calls)
	return cp
}

var _ Provider = (*MockProvider)(nil)
