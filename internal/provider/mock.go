package provider

import (
	"context"
	"sync"
)

// MockProvider returns scripted responses without network I/O. It backs unit
// tests and the demo path when no API key is configured.
type MockProvider struct {
	id        string
	mu        sync.Mutex
	responses []*ChatResponse
	loop      bool
	next      int
	requests  []*ChatRequest
	err       error
}

// NewMockProvider creates a mock provider with the given ID.
func NewMockProvider(id string) *MockProvider {
	return &MockProvider{id: id}
}

func (p *MockProvider) ID() string   { return p.id }
func (p *MockProvider) Name() string { return "Mock" }

// SetResponses queues scripted responses. With loop enabled the queue wraps
// around instead of running dry.
func (p *MockProvider) SetResponses(responses []*ChatResponse, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.loop = loop
	p.next = 0
}

// SetError makes every subsequent call fail with err until reset with nil.
func (p *MockProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Requests returns every request received so far.
func (p *MockProvider) Requests() []*ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Chat replays the next scripted response. With no script, or after the
// script runs dry, it echoes the last message so demos stay interactive.
func (p *MockProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}

	if p.next >= len(p.responses) && p.loop && len(p.responses) > 0 {
		p.next = 0
	}
	if p.next < len(p.responses) {
		resp := p.responses[p.next]
		p.next++
		return resp, nil
	}

	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	return &ChatResponse{
		Model:        "mock-model",
		Content:      "mock reply to: " + truncate(last, 120),
		FinishReason: "stop",
	}, nil
}

// ListModels reports the single mock model.
func (p *MockProvider) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{{ID: "mock-model", Name: "mock-model", Provider: p.id}}, nil
}

// HealthCheck always succeeds unless a forced error is set.
func (p *MockProvider) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
