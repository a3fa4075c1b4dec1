package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a JSON schema from an argument struct. Fields
// tagged omitempty become optional; everything else is required. The
// result is a plain map so it serializes into the tool definition
// without schema metadata the model has no use for.
func schemaFor(v interface{}) map[string]interface{} {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)

	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("reflect tool schema: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("decode tool schema: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
