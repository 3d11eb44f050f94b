package options

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMemStoreDefaultsToZero(t *testing.T) {
	m := NewMemStore()
	opts, err := m.StepOptions(7)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !opts.Empty() {
		t.Errorf("unset step should read back empty, got %+v", opts)
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	m := NewMemStore()
	want := StepOptions{Message: "Insert electrode", Schema: `{"fields":{"v":{"type":"float"}}}`}
	if err := m.SetStepOptions(2, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := m.StepOptions(2)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNormalizeKeepsValidSchema(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	in := StepOptions{Schema: `{"fields":{"v":{"type":"float"}}}`}
	out := Normalize(in, log)
	if out.Schema != in.Schema {
		t.Errorf("valid schema should survive normalization, got %q", out.Schema)
	}
}

func TestNormalizeDiscardsInvalidSchemaAndLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	out := Normalize(StepOptions{Message: "hi", Schema: `{not json`}, log)
	if out.Schema != "" {
		t.Errorf("invalid schema should be normalized to empty, got %q", out.Schema)
	}
	if out.Message != "hi" {
		t.Errorf("message should be preserved, got %q", out.Message)
	}
	if n := strings.Count(buf.String(), "level=WARN"); n != 1 {
		t.Errorf("expected exactly one warning, got %d:\n%s", n, buf.String())
	}
}

func TestNormalizeLeavesEmptySchemaAlone(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	out := Normalize(StepOptions{Message: "hi"}, log)
	if out.Schema != "" || buf.Len() != 0 {
		t.Errorf("empty schema should pass through silently, got %+v, log %q", out, buf.String())
	}
}

func TestLoadFileStrict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.yaml")
	good := "name: demo\nsteps:\n  - message: hello\n  - schema: '{}'\n"
	if err := os.WriteFile(path, []byte(good), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Name != "demo" || len(f.Steps) != 2 {
		t.Errorf("got name=%q steps=%d", f.Name, len(f.Steps))
	}

	bad := "name: demo\nsteps:\n  - message: hello\n    bogus: key\n"
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("unknown keys should be rejected by strict decode")
	}
}

func TestFileStorePersistsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.yaml")
	if err := os.WriteFile(path, []byte("steps:\n  - message: one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}

	want := StepOptions{Message: "two"}
	if err := s.SetStepOptions(1, want); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Reopen to prove the write hit disk.
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.StepOptions(1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFileStoreOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.yaml")
	if err := os.WriteFile(path, []byte("steps:\n  - message: one\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.StepOptions(5); err == nil {
		t.Error("expected out-of-range error")
	}
	if _, err := s.StepOptions(-1); err == nil {
		t.Error("expected out-of-range error for negative index")
	}
}
