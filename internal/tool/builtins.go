package tool

import (
	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/store"
)

// RegisterBuiltins wires the standard tool set into a registry. The
// store and context manager may be nil; tools depending on a missing
// dependency are skipped.
func RegisterBuiltins(r *Registry, mgr *contextmgr.Manager, st *store.Store) {
	r.Register(calculatorTool())
	r.Register(currentTimeTool())
	r.Register(weatherTool())
	r.Register(emailTool())
	if st != nil {
		r.Register(databaseTool(st))
	}
	if mgr != nil {
		r.Register(contextTool(mgr))
	}
}
