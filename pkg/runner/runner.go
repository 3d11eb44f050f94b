// Package runner is a minimal protocol host: it walks the protocol's steps
// in order, announces each one to the registered plugins, and advances,
// retries, or halts based on the reported outcomes.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ormasoftchile/promptgate/pkg/options"
	"github.com/ormasoftchile/promptgate/pkg/plugin"
)

// PromptNotifier is implemented by plugins that announce accepted prompts.
// The runner records the values in the run trace.
type PromptNotifier interface {
	SubscribePromptAccepted(fn func(map[string]any))
}

// Runner drives step execution. It implements plugin.Host and
// plugin.MenuSurface. Run must be called off the UI goroutine; the
// dispatcher owns that one.
type Runner struct {
	store options.Store
	steps int
	reg   *plugin.Registry
	log   *slog.Logger
	trace *TraceWriter

	mu      sync.Mutex
	current int
	values  map[string]any

	// pending holds the outcome for the step currently being run. The
	// handshake contract makes emission synchronous with OnStepRun, so
	// capacity one with a drain between plugins is sufficient.
	pending chan outcomeReport

	menuMu sync.Mutex
	menu   []plugin.MenuItem
}

type outcomeReport struct {
	plugin  string
	outcome plugin.Outcome
}

// New creates a runner over a protocol with the given number of steps.
// trace may be nil to disable trace writing.
func New(store options.Store, steps int, reg *plugin.Registry, log *slog.Logger, trace *TraceWriter) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		store:   store,
		steps:   steps,
		reg:     reg,
		log:     log,
		trace:   trace,
		pending: make(chan outcomeReport, 1),
	}
}

// CurrentStep returns the zero-based index of the step being run.
func (r *Runner) CurrentStep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnStepComplete receives a plugin's outcome for the current step. A second
// report for the same step violates the handshake and is dropped loudly.
func (r *Runner) OnStepComplete(name string, outcome plugin.Outcome) {
	select {
	case r.pending <- outcomeReport{plugin: name, outcome: outcome}:
	default:
		r.log.Error("duplicate step outcome dropped", "plugin", name, "outcome", outcome.String())
	}
}

// AddMenuItem implements plugin.MenuSurface.
func (r *Runner) AddMenuItem(item plugin.MenuItem) {
	r.menuMu.Lock()
	defer r.menuMu.Unlock()
	r.menu = append(r.menu, item)
}

// RemoveMenuItem implements plugin.MenuSurface.
func (r *Runner) RemoveMenuItem(label string) {
	r.menuMu.Lock()
	defer r.menuMu.Unlock()
	for i, item := range r.menu {
		if item.Label == label {
			r.menu = append(r.menu[:i], r.menu[i+1:]...)
			return
		}
	}
}

// MenuItems returns a snapshot of the contributed menu entries.
func (r *Runner) MenuItems() []plugin.MenuItem {
	r.menuMu.Lock()
	defer r.menuMu.Unlock()
	out := make([]plugin.MenuItem, len(r.menu))
	copy(out, r.menu)
	return out
}

// Run executes the protocol from the first step. Continue advances, Retry
// re-runs the same step, Fail halts with an error. Run is one-shot; create
// a new Runner for another run.
func (r *Runner) Run(ctx context.Context) error {
	plugins := r.reg.Plugins()
	for _, p := range plugins {
		if n, ok := p.(PromptNotifier); ok {
			n.SubscribePromptAccepted(r.captureValues)
		}
		p.OnPluginEnable()
	}
	defer func() {
		for _, p := range plugins {
			p.OnPluginDisable()
		}
	}()

	attempts := make(map[int]int)
	for i := 0; i < r.steps; {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.setCurrent(i)
		attempts[i]++

		outcome, name, err := r.runStep(plugins, i)
		if err != nil {
			return err
		}
		r.writeTrace(i, attempts[i], name, outcome)

		switch outcome {
		case plugin.Fail:
			return fmt.Errorf("protocol halted: step %d failed (plugin %s)", i, name)
		case plugin.Retry:
			r.log.Info("step retry requested", "step", i, "plugin", name)
		default:
			i++
		}
	}
	return nil
}

// runStep announces the step to each plugin in turn and collects exactly
// one outcome per plugin. The first non-Continue outcome wins.
func (r *Runner) runStep(plugins []plugin.StepPlugin, i int) (plugin.Outcome, string, error) {
	for _, p := range plugins {
		r.drainPending()
		p.OnStepRun()
		select {
		case rep := <-r.pending:
			if rep.outcome != plugin.Continue {
				return rep.outcome, rep.plugin, nil
			}
		default:
			return plugin.Continue, p.Name(),
				fmt.Errorf("plugin %q reported no outcome for step %d", p.Name(), i)
		}
	}
	return plugin.Continue, "", nil
}

func (r *Runner) drainPending() {
	for {
		select {
		case <-r.pending:
		default:
			return
		}
	}
}

func (r *Runner) setCurrent(i int) {
	r.mu.Lock()
	r.current = i
	r.mu.Unlock()
}

func (r *Runner) captureValues(values map[string]any) {
	r.mu.Lock()
	r.values = values
	r.mu.Unlock()
}

// writeTrace appends one record per step attempt, carrying any prompt
// values accepted during the attempt.
func (r *Runner) writeTrace(step, attempt int, name string, outcome plugin.Outcome) {
	if r.trace == nil {
		return
	}
	r.mu.Lock()
	values := r.values
	r.values = nil
	r.mu.Unlock()

	if err := r.trace.Write(TraceRecord{
		Step:    step,
		Attempt: attempt,
		Plugin:  name,
		Outcome: outcome.String(),
		Values:  values,
	}); err != nil {
		r.log.Error("write trace record", "step", step, "error", err)
	}
}
