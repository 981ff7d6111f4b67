package models

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchemaMismatch is returned when a payload does not have the canonical
// flat property shape (for example the nested, numeric variant).
var ErrSchemaMismatch = errors.New("property payload does not match the canonical schema")

//go:embed property.schema.json
var propertySchemaJSON string

var propertySchema = compilePropertySchema()

func compilePropertySchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true
	if err := compiler.AddResource("property.schema.json", strings.NewReader(propertySchemaJSON)); err != nil {
		panic(fmt.Sprintf("add property schema: %v", err))
	}
	return compiler.MustCompile("property.schema.json")
}

// DecodeProperty validates raw against the canonical property schema and
// decodes it. Validation runs first so that a differently shaped record is
// rejected instead of decoding into a half-empty Property.
func DecodeProperty(raw []byte) (Property, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Property{}, fmt.Errorf("property is not valid JSON: %w", err)
	}
	if err := propertySchema.Validate(doc); err != nil {
		return Property{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	var p Property
	if err := json.Unmarshal(raw, &p); err != nil {
		return Property{}, fmt.Errorf("decode property: %w", err)
	}
	return p, nil
}

// DecodeProperties validates and decodes every element of a raw list.
func DecodeProperties(raw []json.RawMessage) ([]Property, error) {
	out := make([]Property, 0, len(raw))
	for i, r := range raw {
		p, err := DecodeProperty(r)
		if err != nil {
			return nil, fmt.Errorf("property #%d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
