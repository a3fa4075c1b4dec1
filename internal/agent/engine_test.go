package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/tool"
)

func newTestEngine(t *testing.T, opts Options) (*Engine, *provider.MockProvider) {
	t.Helper()
	logger := zap.NewNop()

	mock := provider.NewMockProvider("mock")
	router := provider.NewRouter(logger)
	router.Register(mock)

	mgr, err := contextmgr.New(contextmgr.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("contextmgr.New: %v", err)
	}

	reg := tool.NewRegistry()
	tool.RegisterBuiltins(reg, mgr, nil)

	e := NewEngine(router, reg, mgr, opts, logger)
	e.Register(&Agent{ID: "vault-boy", Name: "Vault Boy", Model: "mock-model"})
	return e, mock
}

func toolCallResponse(id, name, args string) *provider.ChatResponse {
	return &provider.ChatResponse{
		Model:        "mock-model",
		FinishReason: "tool_calls",
		ToolCalls: []provider.ToolCall{{
			ID:   id,
			Type: "function",
			Function: provider.ToolCallFunction{
				Name:      name,
				Arguments: args,
			},
		}},
	}
}

func plainResponse(content string) *provider.ChatResponse {
	return &provider.ChatResponse{
		Model:        "mock-model",
		Content:      content,
		FinishReason: "stop",
	}
}

func TestChatPlainAnswer(t *testing.T) {
	e, mock := newTestEngine(t, Options{})
	mock.SetResponses([]*provider.ChatResponse{plainResponse("hello there")}, false)

	res, err := e.Chat(context.Background(), "vault-boy", "hi")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "hello there" {
		t.Errorf("got content %q, want %q", res.Content, "hello there")
	}
	if res.Rounds != 1 {
		t.Errorf("got %d rounds, want 1", res.Rounds)
	}
	if res.ToolCalls != 0 {
		t.Errorf("got %d tool calls, want 0", res.ToolCalls)
	}

	msgs := e.History().Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d history messages, want 2", len(msgs))
	}
	if msgs[0].Role != contextmgr.RoleUser || msgs[1].Role != contextmgr.RoleAssistant {
		t.Errorf("got roles %s/%s, want user/assistant", msgs[0].Role, msgs[1].Role)
	}
}

func TestChatToolLoop(t *testing.T) {
	e, mock := newTestEngine(t, Options{})
	mock.SetResponses([]*provider.ChatResponse{
		toolCallResponse("call_1", "calculate", `{"expression":"6999 * 2"}`),
		plainResponse("the total is 13998"),
	}, false)

	res, err := e.Chat(context.Background(), "vault-boy", "what is 6999 times 2?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "the total is 13998" {
		t.Errorf("got content %q, want final answer", res.Content)
	}
	if res.Rounds != 2 {
		t.Errorf("got %d rounds, want 2", res.Rounds)
	}
	if res.ToolCalls != 1 {
		t.Errorf("got %d tool calls, want 1", res.ToolCalls)
	}

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("got %d provider requests, want 2", len(reqs))
	}

	second := reqs[1].Messages
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("got trailing message role=%s id=%s, want tool/call_1", last.Role, last.ToolCallID)
	}
	var toolRes tool.Result
	if err := json.Unmarshal([]byte(last.Content), &toolRes); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if !toolRes.Success {
		t.Errorf("tool result not successful: %s", toolRes.Error)
	}

	assistant := second[len(second)-2]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 {
		t.Errorf("expected assistant tool_calls message before tool result")
	}

	// Tool transcripts never land in the durable history.
	msgs := e.History().Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d history messages, want 2", len(msgs))
	}
}

func TestChatBlockedTool(t *testing.T) {
	e, mock := newTestEngine(t, Options{
		Allowlist: tool.NewAllowlist("calculate", "get_weather"),
	})
	mock.SetResponses([]*provider.ChatResponse{
		toolCallResponse("call_1", "send_email", `{"to":"a@example.com","subject":"s","body":"b"}`),
		plainResponse("done"),
	}, false)

	if _, err := e.Chat(context.Background(), "vault-boy", "email someone"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	reqs := mock.Requests()
	for _, def := range reqs[0].Tools {
		if def.Function.Name == "send_email" {
			t.Error("send_email definition should be filtered from the request")
		}
	}

	second := reqs[1].Messages
	last := second[len(second)-1]
	var toolRes tool.Result
	if err := json.Unmarshal([]byte(last.Content), &toolRes); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if toolRes.Success {
		t.Error("blocked tool call should fail")
	}
	if toolRes.Error != "tool send_email is not allowed" {
		t.Errorf("got error %q", toolRes.Error)
	}
}

func TestChatForcedFinalAnswer(t *testing.T) {
	e, mock := newTestEngine(t, Options{})

	var script []*provider.ChatResponse
	for i := 0; i < 5; i++ {
		script = append(script, toolCallResponse(
			fmt.Sprintf("call_%d", i+1), "calculate", `{"expression":"1 + 1"}`))
	}
	script = append(script, plainResponse("the answer is 2"))
	mock.SetResponses(script, false)

	res, err := e.Chat(context.Background(), "vault-boy", "keep calculating")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Content != "the answer is 2" {
		t.Errorf("got content %q, want forced final answer", res.Content)
	}
	if res.Rounds != 5 {
		t.Errorf("got %d rounds, want 5", res.Rounds)
	}
	if res.ToolCalls != 5 {
		t.Errorf("got %d tool calls, want 5", res.ToolCalls)
	}

	reqs := mock.Requests()
	if len(reqs) != 6 {
		t.Fatalf("got %d provider requests, want 6", len(reqs))
	}
	if len(reqs[5].Tools) != 0 {
		t.Error("final forced request should carry no tools")
	}
}

func TestChatHistoryCap(t *testing.T) {
	e, mock := newTestEngine(t, Options{MaxHistory: 4})

	for i := 0; i < 5; i++ {
		if _, err := e.History().Append(contextmgr.RoleUser, fmt.Sprintf("old question %d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if _, err := e.History().Append(contextmgr.RoleAssistant, fmt.Sprintf("old answer %d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	mock.SetResponses([]*provider.ChatResponse{plainResponse("fresh answer")}, false)

	if _, err := e.Chat(context.Background(), "vault-boy", "new question"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	reqs := mock.Requests()
	// 11 recorded messages at request time, capped to the last 4.
	if got := len(reqs[0].Messages); got != 4 {
		t.Errorf("got %d wire messages, want 4", got)
	}
	lastWire := reqs[0].Messages[3]
	if lastWire.Content != "new question" {
		t.Errorf("got trailing wire message %q, want the new question", lastWire.Content)
	}
}

func TestChatUnknownAgent(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	_, err := e.Chat(context.Background(), "ghost", "hi")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("got %v, want ErrAgentNotFound", err)
	}
}

func TestChatSimpleLeavesHistoryAlone(t *testing.T) {
	e, mock := newTestEngine(t, Options{})
	mock.SetResponses([]*provider.ChatResponse{plainResponse("pong")}, false)

	out, err := e.ChatSimple(context.Background(), "vault-boy", "ping", "answer tersely")
	if err != nil {
		t.Fatalf("ChatSimple: %v", err)
	}
	if out != "pong" {
		t.Errorf("got %q, want pong", out)
	}
	if n := len(e.History().Messages()); n != 0 {
		t.Errorf("got %d history messages, want 0", n)
	}

	reqs := mock.Requests()
	if reqs[0].Messages[0].Role != "system" || reqs[0].Messages[0].Content != "answer tersely" {
		t.Error("system prompt not forwarded")
	}
	if len(reqs[0].Tools) != 0 {
		t.Error("ChatSimple should not send tools")
	}
}

func TestRegisterAssignsID(t *testing.T) {
	e, _ := newTestEngine(t, Options{})

	a := &Agent{Name: "Unnamed"}
	e.Register(a)
	if a.ID == "" {
		t.Error("expected generated agent ID")
	}
	if a.Status != StatusIdle {
		t.Errorf("got status %s, want idle", a.Status)
	}
	if len(e.List()) != 2 {
		t.Errorf("got %d agents, want 2", len(e.List()))
	}
}
