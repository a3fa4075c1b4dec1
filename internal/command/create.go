package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/pipboy/internal/agent"
)

// RegisterCreateCommands registers /create_agent. New agents default to
// the given model unless the description overrides it later via
// /switch_model.
func RegisterCreateCommands(reg *Registry, engine *agent.Engine, defaultModel string) {
	reg.Register(createAgentCommand(engine, defaultModel))
}

// ---------------------------------------------------------------------------
// /create_agent <name> <personality description>
// ---------------------------------------------------------------------------

func createAgentCommand(engine *agent.Engine, defaultModel string) *Command {
	return &Command{
		Name:        "create_agent",
		Description: "Create a new AI agent from a name and description",
		Usage:       "/create_agent <name> <personality description>",
		Handler: func(_ context.Context, args string, _ *Context) (*Result, error) {
			args = strings.TrimSpace(args)
			if args == "" {
				return &Result{
					Content: "Usage: /create_agent <name> <personality description>",
				}, nil
			}

			parts := strings.SplitN(args, " ", 2)
			name := parts[0]
			personality := ""
			if len(parts) > 1 {
				personality = strings.TrimSpace(parts[1])
			}
			if personality == "" {
				personality = "A helpful AI assistant."
			}

			a := &agent.Agent{
				Name:         name,
				SystemPrompt: fmt.Sprintf("You are %s. %s", name, personality),
				Model:        defaultModel,
			}
			engine.Register(a)

			return &Result{
				Content: fmt.Sprintf("Agent created: [%s] %s\nPersonality: %s", a.ID, name, personality),
				Data:    map[string]string{"agent_id": a.ID, "name": name},
			}, nil
		},
	}
}
