// Package fields parses user-authored prompt schemas into ordered field
// descriptor sets. A schema is JSON text of the form
//
//	{"fields": {"voltage": {"type": "float", "constraint": "value >= 0"}}}
//
// Parsing is all-or-nothing: a schema is either fully valid or rejected with
// an error, never partially usable.
package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Kind identifies the value type of a single field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindEnum   Kind = "enum"
)

// Field describes one named input in declaration order.
type Field struct {
	Name       string
	Kind       Kind
	Label      string   // display label; defaults to Name
	Default    any      // typed default, nil when absent
	Choices    []string // enum only
	Constraint string   // expr source, "" when absent

	program *vm.Program // compiled Constraint
}

// Schema is the parsed form of a prompt schema document.
// Fields preserve the declaration order of the JSON object.
type Schema struct {
	Fields []Field
}

// Parse validates schema text and derives the ordered field set.
// The text must be non-empty; callers treat empty schema strings as
// "no schema" before reaching here.
func Parse(text string) (*Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty schema")
	}

	// Phase 1: structural — must be a JSON document.
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	// Phase 2: semantic — validate against the generated meta-schema.
	if err := validateSemantic(doc); err != nil {
		return nil, fmt.Errorf("unsupported schema shape: %w", err)
	}

	// Phase 3: derive field descriptors in declaration order.
	s := &Schema{}
	seen := make(map[string]bool)
	walkErr := jsonparser.ObjectEach([]byte(text),
		func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			name := string(key)
			if seen[name] {
				return fmt.Errorf("duplicate field %q", name)
			}
			seen[name] = true
			f, err := deriveField(name, value)
			if err != nil {
				return err
			}
			s.Fields = append(s.Fields, *f)
			return nil
		}, "fields")
	if walkErr != nil {
		return nil, fmt.Errorf("unsupported schema shape: %w", walkErr)
	}
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("unsupported schema shape: no fields declared")
	}
	return s, nil
}

// fieldSpec mirrors the JSON layout of a single field declaration.
type fieldSpec struct {
	Type       string   `json:"type"`
	Label      string   `json:"label,omitempty"`
	Default    any      `json:"default,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	Constraint string   `json:"constraint,omitempty"`
}

func deriveField(name string, raw []byte) (*Field, error) {
	var spec fieldSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}

	f := &Field{
		Name:       name,
		Kind:       Kind(spec.Type),
		Label:      spec.Label,
		Choices:    spec.Choices,
		Constraint: spec.Constraint,
	}
	if f.Label == "" {
		f.Label = name
	}

	switch f.Kind {
	case KindString, KindInt, KindFloat, KindBool:
	case KindEnum:
		if len(f.Choices) == 0 {
			return nil, fmt.Errorf("field %q: enum requires non-empty choices", name)
		}
	default:
		return nil, fmt.Errorf("field %q: unknown type %q", name, spec.Type)
	}

	if spec.Default != nil {
		def, err := coerceDefault(f, spec.Default)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		f.Default = def
	}

	if f.Constraint != "" {
		program, err := expr.Compile(f.Constraint, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid constraint: %w", name, err)
		}
		f.program = program
	}
	return f, nil
}

// coerceDefault converts a JSON default into the field's value type.
// encoding/json decodes all numbers as float64.
func coerceDefault(f *Field, v any) (any, error) {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("default %v is not a string", v)
		}
		return s, nil
	case KindInt:
		n, ok := v.(float64)
		if !ok || n != float64(int64(n)) {
			return nil, fmt.Errorf("default %v is not an integer", v)
		}
		return int(n), nil
	case KindFloat:
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("default %v is not a number", v)
		}
		return n, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("default %v is not a boolean", v)
		}
		return b, nil
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("default %v is not a string", v)
		}
		for _, c := range f.Choices {
			if c == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("default %q is not one of choices %v", s, f.Choices)
	}
	return nil, fmt.Errorf("default on unknown kind %q", f.Kind)
}

// Convert parses user-entered text into the field's value type. Empty
// input falls back to the declared default, except for string fields where
// the empty string is itself a valid value.
func (f *Field) Convert(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" && f.Default != nil && f.Kind != KindString {
		return f.Default, nil
	}
	switch f.Kind {
	case KindString:
		return text, nil
	case KindInt:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", text)
		}
		return n, nil
	case KindFloat:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", text)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean (use true/false)", text)
		}
		return b, nil
	case KindEnum:
		for _, c := range f.Choices {
			if c == text {
				return text, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", text, strings.Join(f.Choices, ", "))
	}
	return nil, fmt.Errorf("unknown kind %q", f.Kind)
}

// Check evaluates the field's constraint against a converted value.
// Fields without a constraint always pass.
func (f *Field) Check(value any) error {
	if f.program == nil {
		return nil
	}
	out, err := expr.Run(f.program, map[string]any{"value": value})
	if err != nil {
		return fmt.Errorf("constraint %q: %w", f.Constraint, err)
	}
	ok, _ := out.(bool)
	if !ok {
		return fmt.Errorf("value %v violates constraint %q", value, f.Constraint)
	}
	return nil
}

// Names returns the declared field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
