package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nidhogg/pipboy/internal/agent"
	"github.com/nidhogg/pipboy/internal/tool"
)

// RegisterBuiltins registers /help, /agents, and /tools.
func RegisterBuiltins(reg *Registry, engine *agent.Engine, tools *tool.Registry) {
	reg.Register(helpCommand(reg))
	reg.Register(agentsCommand(engine))
	reg.Register(toolsCommand(tools))
}

// ---------------------------------------------------------------------------
// /help
// ---------------------------------------------------------------------------

func helpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List all available commands",
		Usage:       "/help",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			cmds := reg.List()
			var b strings.Builder
			b.WriteString("Available commands:\n")
			for _, c := range cmds {
				fmt.Fprintf(&b, "  /%s — %s\n", c.Name, c.Description)
				if c.Usage != "" {
					fmt.Fprintf(&b, "    Usage: %s\n", c.Usage)
				}
			}
			return &Result{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /agents
// ---------------------------------------------------------------------------

func agentsCommand(engine *agent.Engine) *Command {
	return &Command{
		Name:        "agents",
		Description: "List registered AI agents",
		Usage:       "/agents",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			agents := engine.List()
			if len(agents) == 0 {
				return &Result{Content: "No agents registered."}, nil
			}
			sort.Slice(agents, func(i, j int) bool {
				return agents[i].Name < agents[j].Name
			})
			var b strings.Builder
			b.WriteString("Registered agents:\n")
			for _, a := range agents {
				fmt.Fprintf(&b, "  [%s] %s — model: %s, status: %s\n",
					a.ID, a.Name, a.Model, a.Status)
			}
			return &Result{Content: b.String()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /tools
// ---------------------------------------------------------------------------

func toolsCommand(tools *tool.Registry) *Command {
	return &Command{
		Name:        "tools",
		Description: "List tools the agents can call",
		Usage:       "/tools",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			defs := tools.Definitions()
			if len(defs) == 0 {
				return &Result{Content: "No tools registered."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Available tools (%d):\n", len(defs))
			for _, d := range defs {
				// Multi-line descriptions collapse to their first line.
				desc := strings.SplitN(d.Function.Description, "\n", 2)[0]
				fmt.Fprintf(&b, "  %s — %s\n", d.Function.Name, desc)
			}
			return &Result{Content: b.String()}, nil
		},
	}
}
