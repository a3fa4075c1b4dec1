package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewAnthropicProvider creates a provider for the Anthropic API.
func NewAnthropicProvider(cfg Config, logger *zap.Logger) *AnthropicProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.anthropic.com/v1"
	}
	return &AnthropicProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *AnthropicProvider) ID() string   { return p.config.ID }
func (p *AnthropicProvider) Name() string { return p.config.Name }

// Chat sends a single completion request. Tool calls come back translated
// into the same shape the engine gets from OpenAI-compatible endpoints.
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.config.Model
	}
	body, err := json.Marshal(p.convertRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var claudeResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := p.convertResponse(&claudeResp)
	p.logger.Debug("chat completion",
		zap.String("model", out.Model),
		zap.String("finish_reason", out.FinishReason),
		zap.Int("total_tokens", out.Usage.TotalTokens))
	return out, nil
}

// Anthropic-specific request/response types
type anthropicRequest struct {
	Model       string               `json:"model"`
	Messages    []anthropicMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature,omitempty"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock covers text, tool_use and tool_result blocks; unused
// fields stay empty per block type.
type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

func (p *AnthropicProvider) convertRequest(req *ChatRequest) *anthropicRequest {
	ar := &anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = 4096
	}

	if req.ToolChoice != "none" {
		for _, t := range req.Tools {
			ar.Tools = append(ar.Tools, anthropicTool{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				InputSchema: t.Function.Parameters,
			})
		}
		if req.ToolChoice == "required" && len(ar.Tools) > 0 {
			ar.ToolChoice = &anthropicToolChoice{Type: "any"}
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			ar.System = m.Content
		case "tool":
			ar.Messages = append(ar.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicBlock{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case "assistant":
			var blocks []anthropicBlock
			if m.Content != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Function.Arguments
				if args == "" {
					args = "{}"
				}
				blocks = append(blocks, anthropicBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: json.RawMessage(args),
				})
			}
			if len(blocks) == 0 {
				continue
			}
			ar.Messages = append(ar.Messages, anthropicMessage{Role: "assistant", Content: blocks})
		default:
			ar.Messages = append(ar.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicBlock{{Type: "text", Text: m.Content}},
			})
		}
	}

	// The API rejects consecutive same-role turns, so adjacent ones are merged.
	merged := ar.Messages[:0]
	for _, m := range ar.Messages {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content = append(merged[n-1].Content, m.Content...)
			continue
		}
		merged = append(merged, m)
	}
	ar.Messages = merged
	return ar
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *AnthropicProvider) convertResponse(resp *anthropicResponse) *ChatResponse {
	out := &ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	for _, c := range resp.Content {
		switch c.Type {
		case "text":
			out.Content += c.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   c.ID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      c.Name,
					Arguments: string(c.Input),
				},
			})
		}
	}
	switch resp.StopReason {
	case "tool_use":
		out.FinishReason = "tool_calls"
	case "end_turn":
		out.FinishReason = "stop"
	case "max_tokens":
		out.FinishReason = "length"
	default:
		out.FinishReason = resp.StopReason
	}
	return out
}

// ListModels returns available Claude models.
func (p *AnthropicProvider) ListModels(_ context.Context) ([]Model, error) {
	return []Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Provider: p.config.ID, MaxTokens: 200000},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", Provider: p.config.ID, MaxTokens: 200000},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: p.config.ID, MaxTokens: 200000},
	}, nil
}

// HealthCheck verifies the provider is reachable.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	req := &ChatRequest{
		Model:     "claude-3-5-haiku-20241022",
		Messages:  []Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}
	_, err := p.Chat(ctx, req)
	return err
}
