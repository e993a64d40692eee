package normalizer

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed reservation.schema.json
var reservationSchema string

const schemaURL = "https://resort-reservation.local/reservation.schema.json"

// Schema checks the structure of a complete record: required fields, field
// types and the closed set of allowed keys.
type Schema struct {
	compiled *jsonschema.Schema
}

// NewSchema compiles the embedded reservation schema.
func NewSchema() (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(reservationSchema)); err != nil {
		return nil, fmt.Errorf("add reservation schema: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile reservation schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate returns a *ValidationError describing the first structural
// violation in doc, or nil.
func (s *Schema) Validate(doc Document) error {
	// Round trip through JSON so the validator sees the same value types as
	// the persisted record would have.
	raw, err := json.Marshal(doc)
	if err != nil {
		return invalid("Schema validation failed: " + err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return invalid("Schema validation failed: " + err.Error())
	}

	if err := s.compiled.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return invalid("Schema validation failed: " + describe(ve))
		}
		return invalid("Schema validation failed: " + err.Error())
	}
	return nil
}

// describe reports the innermost cause, prefixed by the offending field.
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return ve.Message
	}
	return strings.ReplaceAll(field, "/", ".") + ": " + ve.Message
}
