package fields

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Doc mirrors the JSON layout of a prompt schema document. It exists so the
// meta-schema can be reflected from Go types rather than maintained by hand.
type Doc struct {
	Fields map[string]Spec `json:"fields"`
}

// Spec is the declaration of a single field inside a prompt schema document.
type Spec struct {
	Type       string   `json:"type" jsonschema:"enum=string,enum=int,enum=float,enum=bool,enum=enum"`
	Label      string   `json:"label,omitempty"`
	Default    any      `json:"default,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	Constraint string   `json:"constraint,omitempty"`
}

// Export produces a JSON Schema Draft 2020-12 document for prompt schemas
// using invopop/jsonschema.
func Export() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Doc{})
	s.ID = "https://github.com/ormasoftchile/promptgate/schemas/prompt-schema-v0.json"
	s.Title = "Prompt Schema v0"
	s.Description = "Schema for promptgate step prompt field declarations"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal meta-schema: %w", err)
	}
	return data, nil
}
