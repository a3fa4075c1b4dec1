package provider

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRouterDefaultProvider(t *testing.T) {
	r := NewRouter(zap.NewNop())
	p := NewMockProvider("primary")
	p.SetResponses([]*ChatResponse{{Content: "hello"}}, false)
	r.Register(p)

	resp, err := r.Route(context.Background(), "agent-1", &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("got %q, want %q", resp.Content, "hello")
	}
}

func TestRouterFallbackChain(t *testing.T) {
	r := NewRouter(zap.NewNop())

	broken := NewMockProvider("broken")
	broken.SetError(errors.New("connection refused"))
	backup := NewMockProvider("backup")
	backup.SetResponses([]*ChatResponse{{Content: "from backup"}}, false)

	r.Register(broken)
	r.Register(backup)
	r.Bind("agent-1", "broken")
	r.SetFallbacks("agent-1", []string{"backup"})

	resp, err := r.Route(context.Background(), "agent-1", &ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from backup" {
		t.Errorf("got %q, want %q", resp.Content, "from backup")
	}
}

func TestRouterAllProvidersFail(t *testing.T) {
	r := NewRouter(zap.NewNop())
	broken := NewMockProvider("broken")
	broken.SetError(errors.New("boom"))
	r.Register(broken)

	_, err := r.Route(context.Background(), "agent-1", &ChatRequest{})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
}

func TestRouterNoProviders(t *testing.T) {
	r := NewRouter(zap.NewNop())
	_, err := r.Route(context.Background(), "agent-1", &ChatRequest{})
	if err == nil {
		t.Fatal("expected error for empty router")
	}
}

func TestMockProviderScriptOrder(t *testing.T) {
	p := NewMockProvider("mock")
	p.SetResponses([]*ChatResponse{
		{Content: "first"},
		{Content: "second"},
	}, false)

	ctx := context.Background()
	for _, want := range []string{"first", "second"} {
		resp, err := p.Chat(ctx, &ChatRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != want {
			t.Errorf("got %q, want %q", resp.Content, want)
		}
	}

	// Script exhausted without looping: falls back to echoing.
	resp, err := p.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "ping"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock reply to: ping" {
		t.Errorf("got %q, want echo fallback", resp.Content)
	}

	if got := len(p.Requests()); got != 3 {
		t.Errorf("recorded %d requests, want 3", got)
	}
}

func TestMockProviderLoop(t *testing.T) {
	p := NewMockProvider("mock")
	p.SetResponses([]*ChatResponse{{Content: "only"}}, true)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		resp, err := p.Chat(ctx, &ChatRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Content != "only" {
			t.Errorf("round %d: got %q, want %q", i, resp.Content, "only")
		}
	}
}
