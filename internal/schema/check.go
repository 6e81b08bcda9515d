package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema returns a JSON-Schema document describing a strict reply: an
// object holding exactly the schema's fields, each a string.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s))
	for _, f := range s {
		props[f.Name] = map[string]any{"type": "string", "description": f.Description}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             s.Names(),
	}
}

// Checker reports how far a raw reply deviates from the strict reply shape.
// Deviations are informational: Decode and Backfill still accept the reply.
type Checker struct {
	compiled *jsonschema.Schema
}

// NewChecker compiles the schema's JSON-Schema document.
func (s Schema) NewChecker() (*Checker, error) {
	b, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rfp-fields.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("rfp-fields.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Checker{compiled: compiled}, nil
}

// Check validates raw against the strict shape. A nil Checker accepts
// everything.
func (c *Checker) Check(raw []byte) error {
	if c == nil || c.compiled == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := c.compiled.Validate(v); err != nil {
		return fmt.Errorf("reply does not match field schema: %w", err)
	}
	return nil
}
