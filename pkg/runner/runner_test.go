package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ormasoftchile/promptgate/pkg/options"
	"github.com/ormasoftchile/promptgate/pkg/plugin"
	"github.com/ormasoftchile/promptgate/pkg/prompt"
	"github.com/ormasoftchile/promptgate/pkg/uithread"
)

func parseTrace(t *testing.T, buf *bytes.Buffer) []TraceRecord {
	t.Helper()
	var recs []TraceRecord
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec TraceRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad trace line %q: %v", line, err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func newDispatcher(t *testing.T, log *slog.Logger) *uithread.Dispatcher {
	t.Helper()
	disp := uithread.New(log)
	go disp.Run()
	t.Cleanup(disp.Close)
	return disp
}

func TestRunDrivesPromptPluginToCompletion(t *testing.T) {
	logBuf := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(logBuf, nil))
	disp := newDispatcher(t, log)

	store := options.NewMemStore()
	store.SetStepOptions(1, options.StepOptions{Message: "Insert electrode"})
	store.SetStepOptions(2, options.StepOptions{
		Schema: `{"fields":{"voltage":{"type":"float"}}}`,
	})

	traceBuf := &bytes.Buffer{}
	reg := plugin.NewRegistry()
	r := New(store, 3, reg, log, NewTraceWriterTo(traceBuf))

	script := &prompt.ScriptRenderer{Responses: []prompt.ScriptResponse{
		{}, // accept the message
		{Values: map[string]any{"voltage": 12.5}},
	}}
	p := plugin.New("user-prompt", r, store, script, disp, log)
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	recs := parseTrace(t, traceBuf)
	if len(recs) != 3 {
		t.Fatalf("trace records = %d, want 3", len(recs))
	}
	for i, rec := range recs {
		if rec.Step != i || rec.Outcome != "continue" {
			t.Errorf("record %d = %+v", i, rec)
		}
	}
	if recs[2].Values["voltage"] != 12.5 {
		t.Errorf("step 2 values = %v, want voltage=12.5", recs[2].Values)
	}
	if recs[0].Values != nil {
		t.Errorf("fast-path step should carry no values, got %v", recs[0].Values)
	}
}

func TestRunHaltsOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	disp := newDispatcher(t, log)

	store := options.NewMemStore()
	store.SetStepOptions(0, options.StepOptions{Message: "stop here"})

	traceBuf := &bytes.Buffer{}
	reg := plugin.NewRegistry()
	r := New(store, 2, reg, log, NewTraceWriterTo(traceBuf))

	script := &prompt.ScriptRenderer{Responses: []prompt.ScriptResponse{{Cancel: true}}}
	p := plugin.New("user-prompt", r, store, script, disp, log)
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to halt")
	}
	if !strings.Contains(err.Error(), "step 0 failed") {
		t.Errorf("err = %v", err)
	}
	recs := parseTrace(t, traceBuf)
	if len(recs) != 1 || recs[0].Outcome != "Fail" {
		t.Errorf("trace = %+v, want single Fail record", recs)
	}
}

// retryPlugin reports Retry a fixed number of times before continuing.
// The runner honors Retry even though the prompt plugin never emits it.
type retryPlugin struct {
	host    plugin.Host
	retries int
	runs    int
}

func (p *retryPlugin) Name() string     { return "retrier" }
func (p *retryPlugin) OnPluginEnable()  {}
func (p *retryPlugin) OnPluginDisable() {}
func (p *retryPlugin) OnStepRun() {
	p.runs++
	if p.runs <= p.retries {
		p.host.OnStepComplete(p.Name(), plugin.Retry)
		return
	}
	p.host.OnStepComplete(p.Name(), plugin.Continue)
}

func TestRunHonorsRetry(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	traceBuf := &bytes.Buffer{}
	reg := plugin.NewRegistry()
	r := New(options.NewMemStore(), 1, reg, log, NewTraceWriterTo(traceBuf))

	p := &retryPlugin{host: r, retries: 2}
	if err := reg.Register(p); err != nil {
		t.Fatal(err)
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.runs != 3 {
		t.Errorf("step ran %d times, want 3 (two retries then continue)", p.runs)
	}
	recs := parseTrace(t, traceBuf)
	if len(recs) != 3 {
		t.Fatalf("trace records = %d, want 3", len(recs))
	}
	if recs[0].Attempt != 1 || recs[2].Attempt != 3 {
		t.Errorf("attempts = %d..%d, want 1..3", recs[0].Attempt, recs[2].Attempt)
	}
}

// silentPlugin violates the handshake by never reporting.
type silentPlugin struct{}

func (silentPlugin) Name() string     { return "silent" }
func (silentPlugin) OnStepRun()       {}
func (silentPlugin) OnPluginEnable()  {}
func (silentPlugin) OnPluginDisable() {}

func TestRunDetectsMissingOutcome(t *testing.T) {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	reg := plugin.NewRegistry()
	r := New(options.NewMemStore(), 1, reg, log, nil)
	if err := reg.Register(silentPlugin{}); err != nil {
		t.Fatal(err)
	}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "reported no outcome") {
		t.Errorf("err = %v, want missing-outcome error", err)
	}
}

// chattyPlugin violates the handshake by reporting twice.
type chattyPlugin struct{ host plugin.Host }

func (p *chattyPlugin) Name() string     { return "chatty" }
func (p *chattyPlugin) OnPluginEnable()  {}
func (p *chattyPlugin) OnPluginDisable() {}
func (p *chattyPlugin) OnStepRun() {
	p.host.OnStepComplete(p.Name(), plugin.Continue)
	p.host.OnStepComplete(p.Name(), plugin.Fail)
}

func TestRunDropsDuplicateOutcome(t *testing.T) {
	logBuf := &bytes.Buffer{}
	log := slog.New(slog.NewTextHandler(logBuf, nil))
	reg := plugin.NewRegistry()
	r := New(options.NewMemStore(), 1, reg, log, nil)
	if err := reg.Register(&chattyPlugin{host: r}); err != nil {
		t.Fatal(err)
	}

	// The first outcome (Continue) wins; the duplicate Fail is dropped.
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logBuf.String(), "duplicate step outcome dropped") {
		t.Error("duplicate outcome should be logged")
	}
}

func TestMenuSurface(t *testing.T) {
	r := New(options.NewMemStore(), 0, plugin.NewRegistry(), nil, nil)
	r.AddMenuItem(plugin.MenuItem{Label: "Set step prompt..."})
	if items := r.MenuItems(); len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	r.RemoveMenuItem("Set step prompt...")
	if items := r.MenuItems(); len(items) != 0 {
		t.Errorf("items = %d, want 0 after removal", len(items))
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(options.NewMemStore(), 1, plugin.NewRegistry(), nil, nil)
	if err := r.Run(ctx); err == nil {
		t.Error("expected context error")
	}
}
