package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestOpenAIChat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("got path %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("got auth header %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("got model %q, want default fill", req.Model)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "chatcmpl-1",
			"model": "test-model",
			"choices": []map[string]interface{}{{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": "pong",
					"tool_calls": []map[string]interface{}{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]string{
							"name":      "get_time",
							"arguments": `{"city":"tokyo"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider(Config{
		ID: "openai", Name: "OpenAI", Endpoint: ts.URL, APIKey: "sk-test", Model: "test-model",
	}, zap.NewNop())

	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "pong" {
		t.Errorf("got content %q, want %q", resp.Content, "pong")
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "get_time" {
		t.Errorf("tool calls not mapped: %+v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("got %d total tokens, want 15", resp.Usage.TotalTokens)
	}
}

func TestOpenAIChatAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer ts.Close()

	p := NewOpenAIProvider(Config{ID: "openai", Endpoint: ts.URL, APIKey: "sk-test"}, zap.NewNop())
	_, err := p.Chat(context.Background(), &ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestOpenAIListModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("got path %q, want /models", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"id": "model-a"}, {"id": "model-b"}},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider(Config{ID: "openai", Endpoint: ts.URL}, zap.NewNop())
	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].ID != "model-a" {
		t.Errorf("got model %q, want model-a", models[0].ID)
	}
}
