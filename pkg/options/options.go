// Package options holds per-step prompt configuration and the accessor
// boundary the step controller reads it through.
package options

import (
	"log/slog"
	"sync"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

// StepOptions is the persisted prompt configuration for one step.
// Schema, when non-empty, holds JSON text in the prompt-schema grammar.
type StepOptions struct {
	Message string `json:"message" yaml:"message,omitempty"`
	Schema  string `json:"schema" yaml:"schema,omitempty"`
}

// Empty reports whether the step has no prompt configured at all.
func (o StepOptions) Empty() bool {
	return o.Message == "" && o.Schema == ""
}

// Store is the configuration accessor boundary. Implementations own
// persistence; the controller only reads, and writes via the edit flow.
type Store interface {
	StepOptions(index int) (StepOptions, error)
	SetStepOptions(index int, opts StepOptions) error
}

// Normalize applies the edit-path schema policy: a non-empty schema that
// fails validation is replaced with the empty string and logged, never
// raised. The edit always succeeds from the store's point of view.
func Normalize(opts StepOptions, log *slog.Logger) StepOptions {
	if opts.Schema == "" {
		return opts
	}
	if _, err := fields.Parse(opts.Schema); err != nil {
		log.Warn("discarding invalid step prompt schema", "error", err)
		opts.Schema = ""
	}
	return opts
}

// MemStore is an in-memory Store for embedding hosts and tests.
type MemStore struct {
	mu    sync.Mutex
	steps map[int]StepOptions
}

// NewMemStore creates an empty in-memory store. Steps without an explicit
// entry read back as zero StepOptions.
func NewMemStore() *MemStore {
	return &MemStore{steps: make(map[int]StepOptions)}
}

func (m *MemStore) StepOptions(index int) (StepOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[index], nil
}

func (m *MemStore) SetStepOptions(index int, opts StepOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[index] = opts
	return nil
}
