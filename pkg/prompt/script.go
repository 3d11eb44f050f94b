package prompt

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

// ScriptResponse is one pre-recorded answer to a prompt.
type ScriptResponse struct {
	Cancel bool           `yaml:"cancel,omitempty"`
	Values map[string]any `yaml:"values,omitempty"`
}

// ScriptRenderer replays pre-recorded responses instead of prompting.
// Used for unattended replay and tests; responses are consumed in order,
// one per render.
type ScriptRenderer struct {
	Responses []ScriptResponse
	next      int
}

// LoadScript reads a YAML file holding an ordered list of responses.
func LoadScript(path string) (*ScriptRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script file: %w", err)
	}
	var responses []ScriptResponse
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&responses); err != nil {
		return nil, fmt.Errorf("parse script file %s: %w", path, err)
	}
	return &ScriptRenderer{Responses: responses}, nil
}

// Render consumes the next scripted response. Values are checked against
// the declared fields the same way an operator's input would be.
func (s *ScriptRenderer) Render(req Request) Result {
	if s.next >= len(s.Responses) {
		return Fault(fmt.Errorf("script exhausted: no response for prompt %q", req.Title))
	}
	resp := s.Responses[s.next]
	s.next++

	if resp.Cancel {
		return Cancel()
	}
	if !req.Structured() {
		return Accept(nil)
	}

	values := make(map[string]any, len(req.Fields))
	for i := range req.Fields {
		f := &req.Fields[i]
		raw, ok := resp.Values[f.Name]
		if !ok {
			if f.Default == nil {
				return Fault(fmt.Errorf("script response %d missing field %q", s.next-1, f.Name))
			}
			raw = f.Default
		}
		val, err := coerceScriptValue(f, raw)
		if err == nil {
			err = f.Check(val)
		}
		if err != nil {
			return Fault(fmt.Errorf("script response %d field %q: %w", s.next-1, f.Name, err))
		}
		values[f.Name] = val
	}
	return Accept(values)
}

// coerceScriptValue funnels scripted values through the field's text
// conversion so scripts and live input obey identical rules.
func coerceScriptValue(f *fields.Field, raw any) (any, error) {
	return f.Convert(fmt.Sprint(raw))
}
