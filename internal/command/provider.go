package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nidhogg/pipboy/internal/agent"
	"github.com/nidhogg/pipboy/internal/provider"
)

// RegisterProviderCommands registers /providers, /switch_provider, and
// /switch_model.
func RegisterProviderCommands(reg *Registry, router *provider.Router, engine *agent.Engine) {
	reg.Register(providersCommand(router))
	reg.Register(switchProviderCommand(router))
	reg.Register(switchModelCommand(engine))
}

// ---------------------------------------------------------------------------
// /providers
// ---------------------------------------------------------------------------

func providersCommand(router *provider.Router) *Command {
	return &Command{
		Name:        "providers",
		Description: "List registered LLM providers",
		Usage:       "/providers",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			providers := router.List()
			if len(providers) == 0 {
				return &Result{Content: "No providers registered."}, nil
			}
			sort.Slice(providers, func(i, j int) bool {
				return providers[i].ID() < providers[j].ID()
			})
			defaultID := router.Default()
			var b strings.Builder
			b.WriteString("Registered providers:\n")
			for _, p := range providers {
				marker := "  "
				if p.ID() == defaultID {
					marker = "* "
				}
				fmt.Fprintf(&b, "%s%s (%s)\n", marker, p.Name(), p.ID())
			}
			return &Result{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /switch_provider
// ---------------------------------------------------------------------------

func switchProviderCommand(router *provider.Router) *Command {
	return &Command{
		Name:        "switch_provider",
		Description: "Switch the default LLM provider",
		Usage:       "/switch_provider <provider_id>",
		Handler: func(_ context.Context, args string, _ *Context) (*Result, error) {
			id := strings.TrimSpace(args)
			if id == "" {
				return &Result{Content: "Usage: /switch_provider <provider_id>"}, nil
			}
			if _, ok := router.Get(id); !ok {
				return &Result{
					Content: fmt.Sprintf("Unknown provider %q. Use /providers to list them.", id),
				}, nil
			}
			router.SetDefault(id)
			return &Result{
				Content: fmt.Sprintf("Default provider switched to %q.", id),
			}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /switch_model
// ---------------------------------------------------------------------------

func switchModelCommand(engine *agent.Engine) *Command {
	return &Command{
		Name:        "switch_model",
		Description: "Switch the model the current agent uses",
		Usage:       "/switch_model <model>",
		Handler: func(_ context.Context, args string, cc *Context) (*Result, error) {
			model := strings.TrimSpace(args)
			if model == "" {
				return &Result{Content: "Usage: /switch_model <model>"}, nil
			}
			if err := engine.SetModel(cc.AgentID, model); err != nil {
				return &Result{Content: fmt.Sprintf("Failed to switch model: %v", err)}, nil
			}
			return &Result{
				Content: fmt.Sprintf("Model switched to %q.", model),
				Data:    map[string]string{"agent_id": cc.AgentID, "model": model},
			}, nil
		},
	}
}
