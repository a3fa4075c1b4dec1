package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router holds registered providers and picks one per agent, walking the
// agent's fallback chain when the preferred provider fails.
type Router struct {
	providers map[string]Provider
	bindings  map[string]string   // agentID -> providerID
	fallbacks map[string][]string // agentID -> fallback provider chain
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates an empty provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		bindings:  make(map[string]string),
		fallbacks: make(map[string][]string),
		logger:    logger,
	}
}

// Register adds a provider. The first registered provider becomes the default.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault picks the provider used for agents without a binding.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = providerID
}

// Default returns the ID of the provider used for unbound agents.
func (r *Router) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Bind pins an agent to a specific provider.
func (r *Router) Bind(agentID, providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[agentID] = providerID
}

// SetFallbacks configures the providers tried, in order, after the agent's
// primary fails.
func (r *Router) SetFallbacks(agentID string, providerIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[agentID] = providerIDs
}

// Route sends the request through the agent's provider chain. The lock is
// released before any network call.
func (r *Router) Route(ctx context.Context, agentID string, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	chain := r.chain(agentID)
	r.mu.RUnlock()

	if len(chain) == 0 {
		return nil, fmt.Errorf("no provider available for agent %s", agentID)
	}

	var lastErr error
	for _, p := range chain {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn("provider failed, trying next in chain",
			zap.String("provider", p.ID()),
			zap.String("agent", agentID),
			zap.Error(err))
	}
	return nil, fmt.Errorf("all providers failed for agent %s: %w", agentID, lastErr)
}

// chain resolves the ordered provider list for an agent: binding (or default)
// first, then fallbacks. Callers must hold the read lock.
func (r *Router) chain(agentID string) []Provider {
	var chain []Provider
	if pid, ok := r.bindings[agentID]; ok {
		if p, ok := r.providers[pid]; ok {
			chain = append(chain, p)
		}
	}
	if len(chain) == 0 {
		if p, ok := r.providers[r.defaults]; ok {
			chain = append(chain, p)
		}
	}
	for _, fbID := range r.fallbacks[agentID] {
		if p, ok := r.providers[fbID]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}

// Get returns a provider by ID.
func (r *Router) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// List returns all registered providers.
func (r *Router) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	return result
}
