package options

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is the on-disk protocol document: a named, ordered list of step
// prompt options. Decoding is strict; unknown keys are rejected.
type File struct {
	Name  string        `yaml:"name,omitempty"`
	Steps []StepOptions `yaml:"steps"`
}

// LoadFile reads and strictly decodes a protocol file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol file: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse protocol file %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the document back to disk.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal protocol file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write protocol file: %w", err)
	}
	return nil
}

// FileStore is a Store backed by a protocol file. Writes persist
// immediately, the way the edit flow expects.
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  *File
}

// OpenFile loads a protocol file into a FileStore.
func OpenFile(path string) (*FileStore, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, doc: doc}, nil
}

// Len returns the number of steps in the protocol.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Steps)
}

// Name returns the protocol name, which may be empty.
func (s *FileStore) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Name
}

func (s *FileStore) StepOptions(index int) (StepOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.doc.Steps) {
		return StepOptions{}, fmt.Errorf("step %d out of range (protocol has %d steps)", index, len(s.doc.Steps))
	}
	return s.doc.Steps[index], nil
}

func (s *FileStore) SetStepOptions(index int, opts StepOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		return fmt.Errorf("step %d out of range", index)
	}
	for index >= len(s.doc.Steps) {
		s.doc.Steps = append(s.doc.Steps, StepOptions{})
	}
	s.doc.Steps[index] = opts
	return s.doc.Save(s.path)
}
