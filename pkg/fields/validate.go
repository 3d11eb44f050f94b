package fields

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	metaOnce sync.Once
	metaSch  *sjsonschema.Schema
	metaErr  error
)

// compileMeta compiles the generated meta-schema once per process.
func compileMeta() (*sjsonschema.Schema, error) {
	metaOnce.Do(func() {
		raw, err := Export()
		if err != nil {
			metaErr = fmt.Errorf("generate meta-schema: %w", err)
			return
		}
		var schemaDoc any
		if err := json.Unmarshal(raw, &schemaDoc); err != nil {
			metaErr = fmt.Errorf("unmarshal meta-schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource("prompt-schema-v0.json", schemaDoc); err != nil {
			metaErr = fmt.Errorf("add meta-schema resource: %w", err)
			return
		}
		metaSch, metaErr = c.Compile("prompt-schema-v0.json")
	})
	return metaSch, metaErr
}

// validateSemantic checks a decoded schema document against the meta-schema.
func validateSemantic(doc any) error {
	sch, err := compileMeta()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			var msgs []string
			for _, cause := range flattenValidationErrors(ve) {
				loc := strings.Join(cause.InstanceLocation, "/")
				if loc == "" {
					loc = "(document)"
				}
				msgs = append(msgs, fmt.Sprintf("%s: %v", loc, cause.ErrorKind))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
