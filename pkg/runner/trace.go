package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TraceRecord is one line of the JSONL run trace.
type TraceRecord struct {
	Step    int            `json:"step"`
	Attempt int            `json:"attempt"`
	Plugin  string         `json:"plugin,omitempty"`
	Outcome string         `json:"outcome"`
	Values  map[string]any `json:"values,omitempty"`
	At      time.Time      `json:"at"`
}

// TraceWriter appends TraceRecords as JSON lines.
type TraceWriter struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewTraceWriter opens (or creates) a trace file for appending.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &TraceWriter{w: f, c: f}, nil
}

// NewTraceWriterTo writes records to an arbitrary writer, mainly for tests.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{w: w}
}

// Write appends one record. The timestamp is stamped here if unset.
func (t *TraceWriter) Write(rec TraceRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trace record: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write trace record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.c == nil {
		return nil
	}
	return t.c.Close()
}
