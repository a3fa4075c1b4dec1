package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/nidhogg/pipboy/internal/provider"
)

// Handler executes a tool call and returns the result as a JSON string.
type Handler func(ctx context.Context, args string) (string, error)

// Registry holds available tools and their handlers. Register every
// tool before serving requests; the registry is read-only afterwards.
type Registry struct {
	defs     []provider.Tool
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a tool definition and its handler.
func (r *Registry) Register(def provider.Tool, handler Handler) {
	r.defs = append(r.defs, def)
	r.handlers[def.Function.Name] = handler
}

// Definitions returns all tool definitions for the LLM request.
func (r *Registry) Definitions() []provider.Tool {
	return r.defs
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Execute runs a tool by name with the given JSON arguments.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, args)
}
