// Package jsonschema validates extraction results against a JSON Schema
// using santhosh-tekuri/jsonschema.
package jsonschema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/docint"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var _ docint.Validator = (*Validator)(nil)

// NonEmptySchema rejects results without content.
const NonEmptySchema = `{
  "type": "object",
  "required": ["content"],
  "properties": {
    "content": {"type": "string", "pattern": "\\S"}
  }
}`

// Validator checks the JSON form of a result (the same document the CLI
// writes with --format json) against a compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// NewValidator compiles schema and returns a Validator registered as name.
func NewValidator(name string, schema []byte) (*Validator, error) {
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, docint.Errorf(docint.EINVALID, "add schema %q: %v", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, docint.Errorf(docint.EINVALID, "compile schema %q: %v", name, err)
	}
	return &Validator{name: name, schema: compiled}, nil
}

// NewNonEmptyValidator returns a Validator using NonEmptySchema.
func NewNonEmptyValidator() *Validator {
	v, err := NewValidator("non_empty", []byte(NonEmptySchema))
	if err != nil {
		panic(fmt.Sprintf("jsonschema: built-in schema: %v", err))
	}
	return v
}

func (v *Validator) Name() string { return v.name }

func (v *Validator) Validate(_ context.Context, result *docint.ExtractionResult, _ *docint.ExtractionConfig) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return docint.Errorf(docint.EVALIDATION, "result does not match schema %q: %v", v.name, err)
	}
	return nil
}
