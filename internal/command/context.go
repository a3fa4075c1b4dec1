package command

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nidhogg/pipboy/internal/contextmgr"
)

// RegisterContextCommands registers the conversation-context commands:
// /monitor, /compact, /stats, /recent, and /clear.
func RegisterContextCommands(reg *Registry, history *contextmgr.Manager) {
	reg.Register(monitorCommand(history))
	reg.Register(compactCommand(history))
	reg.Register(statsCommand(history))
	reg.Register(recentCommand(history))
	reg.Register(clearCommand(history))
}

// ---------------------------------------------------------------------------
// /monitor
// ---------------------------------------------------------------------------

func monitorCommand(history *contextmgr.Manager) *Command {
	return &Command{
		Name:        "monitor",
		Description: "Show context window usage",
		Usage:       "/monitor",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			u := history.Monitor()
			content := fmt.Sprintf("Context usage: %d/%d tokens (%.1f%%)\nStatus: %s",
				u.TotalTokens, u.MaxTokens, u.UsageRatio*100, u.Status)
			return &Result{Content: content, Data: u}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /compact
// ---------------------------------------------------------------------------

func compactCommand(history *contextmgr.Manager) *Command {
	return &Command{
		Name:        "compact",
		Description: "Compress the context, dropping old non-user messages",
		Usage:       "/compact",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			res := history.Compact()
			if res.RemovedCount == 0 {
				return &Result{Content: "Nothing to compact.", Data: res}, nil
			}
			content := fmt.Sprintf("Compacted: removed %d message(s), kept %d, freed %d tokens.",
				res.RemovedCount, res.RetainedCount, res.TokensFreed)
			return &Result{Content: content, Data: res}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /stats
// ---------------------------------------------------------------------------

func statsCommand(history *contextmgr.Manager) *Command {
	return &Command{
		Name:        "stats",
		Description: "Show conversation statistics",
		Usage:       "/stats",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			s := history.Stats()
			var b strings.Builder
			b.WriteString("Conversation statistics:\n")
			fmt.Fprintf(&b, "  Messages: %d\n", s.MessageCount)
			fmt.Fprintf(&b, "  Tokens: %d (%.1f%% of window)\n", s.TotalTokens, s.UsageRatio*100)
			fmt.Fprintf(&b, "  Compactions: %d\n", s.Compactions)
			if len(s.PerRole) > 0 {
				b.WriteString("  By role:\n")
				roles := make([]string, 0, len(s.PerRole))
				for r := range s.PerRole {
					roles = append(roles, string(r))
				}
				sort.Strings(roles)
				for _, r := range roles {
					fmt.Fprintf(&b, "    %s: %d\n", r, s.PerRole[contextmgr.Role(r)])
				}
			}
			return &Result{Content: b.String(), Data: s}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /recent [n]
// ---------------------------------------------------------------------------

func recentCommand(history *contextmgr.Manager) *Command {
	return &Command{
		Name:        "recent",
		Description: "Show the most recent messages",
		Usage:       "/recent [n]",
		Handler: func(_ context.Context, args string, _ *Context) (*Result, error) {
			n := 5
			if args != "" {
				parsed, err := strconv.Atoi(args)
				if err != nil {
					return &Result{Content: "Usage: /recent [n]"}, nil
				}
				n = parsed
			}
			msgs := history.Recent(n)
			if len(msgs) == 0 {
				return &Result{Content: "No messages in context."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Last %d message(s):\n", len(msgs))
			for _, m := range msgs {
				fmt.Fprintf(&b, "  [%s] %s\n", m.Role, truncateContent(m.Content, 80))
			}
			return &Result{Content: b.String(), Data: msgs}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /clear
// ---------------------------------------------------------------------------

func clearCommand(history *contextmgr.Manager) *Command {
	return &Command{
		Name:        "clear",
		Description: "Clear the conversation context",
		Usage:       "/clear",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			history.Clear()
			return &Result{Content: "Context cleared."}, nil
		},
	}
}

// truncateContent shortens a message body for single-line display.
func truncateContent(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
