package llm

import (
	"github.com/joseph-ayodele/fieldextract/internal/fields"
)

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map
// describing the reply object for specs. Unrequested properties are allowed
// (they are discarded later); requested ones are optional and nullable.
func BuildFieldsJSONSchema(specs fields.SpecSet) map[string]any {
	props := make(map[string]any, specs.Len())
	for _, sp := range specs.Specs() {
		props[sp.Key] = fieldProp(sp)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func fieldProp(sp fields.Spec) map[string]any {
	p := map[string]any{}
	if sp.Description != "" {
		p["description"] = sp.Description
	}
	switch sp.Type {
	case fields.TypeInteger:
		// strings are allowed so grouped numbers ("12.345.678") reach coercion
		p["type"] = []string{"integer", "string", "null"}
	default:
		p["type"] = []string{"string", "number", "null"}
	}
	return p
}
