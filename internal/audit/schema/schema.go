// Package schema validates inbound audit documents against the fixed
// JSON Schema contract shipped with the service.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one schema violation, tagged with the path of the offending
// field. Document-level violations (missing required properties, wrong root
// type) carry an empty path. It marshals as the two-element array
// [path, message] that clients receive in the 400 envelope.
type FieldError struct {
	Path    []string
	Message string
}

// MarshalJSON renders the error as [path, message].
func (e FieldError) MarshalJSON() ([]byte, error) {
	path := e.Path
	if path == nil {
		path = []string{}
	}
	return json.Marshal([2]any{path, e.Message})
}

// ValidationError carries the full list of violations for one document so
// callers can surface every problem at once rather than fail-fast.
type ValidationError struct {
	Violations []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// Validator checks documents against a compiled Draft-7 schema. It is
// stateless after construction and safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles a validator from raw schema JSON. Format assertions
// (date-time and friends) are enforced.
func New(schemaJSON []byte) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// NewFromFile loads and compiles the schema document at path. Called once
// at startup.
func NewFromFile(path string) (*Validator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return New(raw)
}

// Validate returns every violation found in doc, or nil when the document
// conforms. Side-effect free.
func (v *Validator) Validate(doc map[string]any) []FieldError {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		// The document itself could not be interpreted; report it at the
		// document level rather than dropping the failure.
		return []FieldError{{Path: []string{}, Message: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	violations := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, FieldError{
			Path:    fieldPath(re.Field()),
			Message: re.Description(),
		})
	}
	return violations
}

// fieldPath converts gojsonschema's dotted field notation into a path list.
// "(root)" marks document-level errors.
func fieldPath(field string) []string {
	if field == "" || field == "(root)" {
		return []string{}
	}
	return strings.Split(field, ".")
}
