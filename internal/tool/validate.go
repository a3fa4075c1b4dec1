package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used across the package.
var validate = validator.New()

// Allowlist restricts which tools the conversation loop may invoke.
// An empty allowlist permits everything.
type Allowlist struct {
	names map[string]struct{}
}

// NewAllowlist builds an allowlist from tool names.
func NewAllowlist(names ...string) *Allowlist {
	a := &Allowlist{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		a.names[n] = struct{}{}
	}
	return a
}

// Permits reports whether the named tool may be called.
func (a *Allowlist) Permits(name string) bool {
	if a == nil || len(a.names) == 0 {
		return true
	}
	_, ok := a.names[name]
	return ok
}

// decodeArgs fills dst from the model-supplied JSON arguments and runs
// struct validation. Blank arguments decode as an empty object so tools
// with all-optional parameters accept a missing payload.
func decodeArgs(args string, dst interface{}) error {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), dst); err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
