package tool

import (
	"context"
	"fmt"

	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/provider"
)

// defaultRecentN is how many messages the recent action returns when n
// is omitted.
const defaultRecentN = 5

type contextArgs struct {
	Action string `json:"action" validate:"required" jsonschema:"enum=monitor,enum=compress,enum=stats,enum=clear,enum=recent,description=Operation to run against the conversation context"`
	N      *int   `json:"n,omitempty" jsonschema:"description=How many recent messages to return; only used by the recent action"`
}

func contextTool(mgr *contextmgr.Manager) (provider.Tool, Handler) {
	def := provider.Tool{
		Type: "function",
		Function: provider.ToolFunction{
			Name:        "manage_context",
			Description: "Inspect or maintain the conversation context window. Actions: monitor, compress, stats, clear, recent.",
			Parameters:  schemaFor(&contextArgs{}),
		},
	}
	handler := func(ctx context.Context, args string) (string, error) {
		var a contextArgs
		if err := decodeArgs(args, &a); err != nil {
			return fail(err.Error())
		}

		switch a.Action {
		case "monitor":
			return ok(mgr.Monitor(), "")
		case "compress":
			res := mgr.Compact()
			return ok(res, fmt.Sprintf("removed %d messages, freed %d tokens", res.RemovedCount, res.TokensFreed))
		case "stats":
			return ok(mgr.Stats(), "")
		case "clear":
			mgr.Clear()
			return ok(nil, "context cleared")
		case "recent":
			n := defaultRecentN
			if a.N != nil {
				n = *a.N
			}
			msgs := mgr.Recent(n)
			return ok(map[string]interface{}{
				"count":    len(msgs),
				"messages": msgs,
			}, "")
		default:
			return fail(fmt.Sprintf("unknown action: %s", a.Action))
		}
	}
	return def, handler
}
