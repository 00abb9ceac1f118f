// SPDX-License-Identifier: Apache-2.0

// Package command is the typed command/query surface sitting in front of
// internal/core: it decodes the virtual-table row payloads spec.md §6
// describes (resources, rules, bookings, holds, and the read-only
// availability pseudo-table), validates them against an embedded OpenAPI
// 3 schema and a small field-level validator, and translates a valid
// payload into internal/core/mutation.Command or
// internal/core/availability.Query values. Nothing outside this package
// decodes an external request directly into engine types.
package command

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed schema.yaml
var schemaYAML []byte

// Schema holds the loaded OpenAPI document and a handle to each named
// table's row schema, resolved once at process start.
type Schema struct {
	doc     *openapi3.T
	schemas map[string]*openapi3.Schema
}

// tableNames are the five logical tables spec.md §6 names, mirrored 1:1
// onto component schema names in schema.yaml.
var tableNames = []string{"resource", "rule", "booking", "hold", "availability_query"}

// LoadSchema parses and validates the embedded OpenAPI document, the same
// generate-from-spec discipline the teacher applies to the Slurm REST
// API, narrowed to this engine's five logical tables.
func LoadSchema() (*Schema, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(schemaYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded schema: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validating embedded schema: %w", err)
	}

	s := &Schema{doc: doc, schemas: make(map[string]*openapi3.Schema, len(tableNames))}
	for _, name := range tableNames {
		ref, ok := doc.Components.Schemas[name]
		if !ok || ref.Value == nil {
			return nil, fmt.Errorf("schema.yaml is missing the %q component", name)
		}
		s.schemas[name] = ref.Value
	}
	return s, nil
}

// Validate checks payload (a decoded JSON object, the shape an external
// SQL-to-command adapter would produce) against table's row schema.
func (s *Schema) Validate(table string, payload map[string]any) error {
	schema, ok := s.schemas[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	return schema.VisitJSON(payload)
}
