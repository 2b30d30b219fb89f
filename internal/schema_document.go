package internal

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/datamimic"
)

const draft2020 = "https://json-schema.org/draft/2020-12/schema"

// BuildSchemaDocument describes one generated record of schema as a JSON Schema object.
// Every property admits null because missingness injection may blank any cell. Declared
// numeric ranges become minimum/maximum, and integer fields stay integers, only when bounded
// is set. Unclamped variance injection widens values past the range and off the integers.
func BuildSchemaDocument(schema *datamimic.Schema, bounded bool) *jsonschema.Schema {
	doc := &jsonschema.Schema{
		Schema:        draft2020,
		Title:         schema.Name,
		Type:          "object",
		Properties:    make(map[string]*jsonschema.Schema, len(schema.Fields)),
		PropertyOrder: schema.FieldNames(),
	}
	for _, f := range schema.Fields {
		doc.Properties[f.Name] = fieldDocument(f.Spec, bounded)
	}
	return doc
}

func fieldDocument(spec datamimic.FieldSpec, bounded bool) *jsonschema.Schema {
	prop := &jsonschema.Schema{Description: string(spec.Kind())}
	switch s := spec.(type) {
	case datamimic.FixedField:
		switch s.Generator {
		case datamimic.GeneratorBoolean:
			prop.Types = []string{"boolean", "null"}
		case datamimic.GeneratorUUID:
			prop.Types = []string{"string", "null"}
			prop.Format = "uuid"
		case datamimic.GeneratorEmailAddress:
			prop.Types = []string{"string", "null"}
			prop.Format = "email"
		default:
			prop.Types = []string{"string", "null"}
		}
	case datamimic.BoundedField:
		if s.Generator == datamimic.GeneratorInteger && bounded {
			prop.Types = []string{"integer", "null"}
		} else {
			prop.Types = []string{"number", "null"}
		}
		if bounded {
			lo, hi := s.Low, s.High
			prop.Minimum = &lo
			prop.Maximum = &hi
		}
	case datamimic.CategoricalField:
		prop.Enum = enumOf(s.Values)
	case datamimic.SequenceField:
		prop.Enum = enumOf(s.Values)
	case datamimic.DateOffsetField:
		prop.Types = []string{"string", "null"}
		prop.Format = "date"
	}
	return prop
}

func enumOf(values []datamimic.Value) []any {
	out := make([]any, 0, len(values)+1)
	for _, v := range values {
		out = append(out, jsonInstance(v))
	}
	return append(out, nil)
}

// jsonInstance converts a cell to the form it takes after a JSON round trip.
func jsonInstance(v datamimic.Value) any {
	switch v.Kind() {
	case datamimic.KindInt:
		return float64(v.Int())
	case datamimic.KindDate:
		return datamimic.FormatDate(v.Time())
	}
	return v.Interface()
}

// ValidateRecords checks every row of ds against doc and returns the first failure.
func ValidateRecords(doc *jsonschema.Schema, ds *datamimic.Dataset) error {
	resolved, err := doc.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return fmt.Errorf("failed to resolve JSON schema: %w", err)
	}
	for r, row := range ds.Rows {
		record := make(map[string]datamimic.Value, len(row))
		for c, name := range ds.Columns {
			record[name] = row[c]
		}
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal row %d: %w", r, err)
		}
		var instance any
		if err := json.Unmarshal(raw, &instance); err != nil {
			return fmt.Errorf("failed to unmarshal row %d: %w", r, err)
		}
		if err := resolved.Validate(instance); err != nil {
			return fmt.Errorf("row %d failed validation: %w", r, err)
		}
	}
	return nil
}
