package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/tool"
)

// maxToolRounds bounds how many times a single chat turn may loop
// through tool execution before the model is forced to answer.
const maxToolRounds = 5

const defaultTemperature = 0.7

// ErrAgentNotFound is returned when an agent ID doesn't exist.
var ErrAgentNotFound = fmt.Errorf("agent not found")

// Options tune the engine.
type Options struct {
	// MaxHistory is how many recorded messages are replayed to the
	// model on each turn.
	MaxHistory int
	// RatePerMinute caps provider requests per minute.
	RatePerMinute int
	// Allowlist optionally restricts which tools the model may call.
	Allowlist *tool.Allowlist
}

func (o *Options) normalize() {
	if o.MaxHistory <= 0 {
		o.MaxHistory = 20
	}
	if o.RatePerMinute <= 0 {
		o.RatePerMinute = 60
	}
}

// Engine runs chat turns against a provider, executing tool calls and
// recording the conversation in the context manager.
type Engine struct {
	agents  map[string]*Agent
	router  *provider.Router
	tools   *tool.Registry
	history *contextmgr.Manager
	allow   *tool.Allowlist
	limiter *rate.Limiter
	opts    Options
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewEngine creates an engine around a provider router, a tool
// registry, and the conversation context manager.
func NewEngine(router *provider.Router, tools *tool.Registry, history *contextmgr.Manager, opts Options, logger *zap.Logger) *Engine {
	opts.normalize()
	return &Engine{
		agents:  make(map[string]*Agent),
		router:  router,
		tools:   tools,
		history: history,
		allow:   opts.Allowlist,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute),
		opts:    opts,
		logger:  logger,
	}
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *tool.Registry { return e.tools }

// History returns the conversation context manager.
func (e *Engine) History() *contextmgr.Manager { return e.history }

// Register adds an agent to the engine.
func (e *Engine) Register(a *Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	a.Status = StatusIdle
	e.agents[a.ID] = a
	e.logger.Info("registered agent",
		zap.String("id", a.ID),
		zap.String("name", a.Name))
}

// Get returns an agent by ID.
func (e *Engine) Get(id string) (*Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	return a, ok
}

// SetModel changes the model an agent requests from its provider.
func (e *Engine) SetModel(agentID, model string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.agents[agentID]
	if !ok {
		return ErrAgentNotFound
	}
	a.Model = model
	a.UpdatedAt = time.Now()
	return nil
}

// List returns all registered agents.
func (e *Engine) List() []*Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]*Agent, 0, len(e.agents))
	for _, a := range e.agents {
		result = append(result, a)
	}
	return result
}

// ChatResult holds the outcome of one conversation turn.
type ChatResult struct {
	Content   string         `json:"content"`
	ToolCalls int            `json:"tool_calls_count"`
	Rounds    int            `json:"rounds"`
	Usage     provider.Usage `json:"usage"`
}

// Chat runs one conversation turn: the user message is recorded,
// tool calls are executed for up to maxToolRounds rounds, and the
// final assistant answer is recorded and returned.
func (e *Engine) Chat(ctx context.Context, agentID, userMsg string) (*ChatResult, error) {
	agent, ok := e.Get(agentID)
	if !ok {
		return nil, ErrAgentNotFound
	}

	e.setStatus(agentID, StatusThinking)
	defer e.setStatus(agentID, StatusIdle)

	if _, err := e.history.Append(contextmgr.RoleUser, userMsg); err != nil {
		return nil, err
	}

	req := &provider.ChatRequest{
		Model:       agent.Model,
		Messages:    e.buildMessages(agent),
		Temperature: defaultTemperature,
	}
	if defs := e.allowedDefs(); len(defs) > 0 {
		req.Tools = defs
		req.ToolChoice = "auto"
	}

	result := &ChatResult{}
	var resp *provider.ChatResponse
	for round := 0; round < maxToolRounds; round++ {
		result.Rounds = round + 1
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var routeErr error
		resp, routeErr = e.router.Route(ctx, agentID, req)
		if routeErr != nil {
			return nil, routeErr
		}

		if len(resp.ToolCalls) == 0 || resp.FinishReason != "tool_calls" {
			break
		}

		req.Messages = append(req.Messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result.ToolCalls++
			req.Messages = append(req.Messages, provider.Message{
				Role:       "tool",
				Content:    e.runTool(ctx, tc),
				ToolCallID: tc.ID,
			})
		}
		e.logger.Debug("tool round complete",
			zap.Int("round", round+1),
			zap.Int("tool_calls", len(resp.ToolCalls)))
	}

	// The model is still asking for tools after the last round; take
	// the tools away and ask for a final answer.
	if len(resp.ToolCalls) > 0 && resp.FinishReason == "tool_calls" {
		req.Tools = nil
		req.ToolChoice = ""
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		final, err := e.router.Route(ctx, agentID, req)
		if err != nil {
			e.logger.Warn("forced final answer failed", zap.Error(err))
			resp.Content = "I could not finish the request within the allowed tool rounds."
		} else {
			resp = final
		}
	}

	if _, err := e.history.Append(contextmgr.RoleAssistant, resp.Content); err != nil {
		return nil, err
	}
	if usage := e.history.Monitor(); usage.Status != contextmgr.StatusOK {
		e.logger.Warn("context usage high",
			zap.String("status", string(usage.Status)),
			zap.Float64("ratio", usage.UsageRatio))
	}

	result.Content = resp.Content
	result.Usage = resp.Usage
	return result, nil
}

// ChatSimple sends a one-shot prompt without tools and without
// touching the conversation history.
func (e *Engine) ChatSimple(ctx context.Context, agentID, userMsg, systemPrompt string) (string, error) {
	agent, ok := e.Get(agentID)
	if !ok {
		return "", ErrAgentNotFound
	}

	var msgs []provider.Message
	if systemPrompt != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, provider.Message{Role: "user", Content: userMsg})

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := e.router.Route(ctx, agentID, &provider.ChatRequest{
		Model:       agent.Model,
		Messages:    msgs,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// RouteRaw sends a ChatRequest directly through the provider router,
// bypassing the conversation loop. Used by the orchestrator for
// internal LLM calls. The request still counts against the rate limit.
func (e *Engine) RouteRaw(ctx context.Context, agentID string, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.router.Route(ctx, agentID, req)
}

func (e *Engine) setStatus(agentID string, s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.agents[agentID]; ok {
		a.Status = s
		a.UpdatedAt = time.Now()
	}
}

// buildMessages assembles the wire payload for a turn: the agent's
// system prompt followed by the most recent recorded messages. Tool
// transcripts stay local to the turn that produced them.
func (e *Engine) buildMessages(a *Agent) []provider.Message {
	var msgs []provider.Message
	if a.SystemPrompt != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: a.SystemPrompt})
	}
	for _, m := range e.history.Recent(e.opts.MaxHistory) {
		if m.Role != contextmgr.RoleUser && m.Role != contextmgr.RoleAssistant {
			continue
		}
		msgs = append(msgs, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func (e *Engine) allowedDefs() []provider.Tool {
	defs := e.tools.Definitions()
	out := make([]provider.Tool, 0, len(defs))
	for _, d := range defs {
		if e.allow.Permits(d.Function.Name) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) runTool(ctx context.Context, tc provider.ToolCall) string {
	name := tc.Function.Name
	if !e.allow.Permits(name) {
		e.logger.Warn("tool call blocked", zap.String("tool", name))
		return toolFailure(fmt.Sprintf("tool %s is not allowed", name))
	}
	out, err := e.tools.Execute(ctx, name, tc.Function.Arguments)
	if err != nil {
		e.logger.Warn("tool execution failed",
			zap.String("tool", name), zap.Error(err))
		return toolFailure(err.Error())
	}
	return out
}

func toolFailure(msg string) string {
	b, _ := json.Marshal(tool.Result{Success: false, Error: msg})
	return string(b)
}
