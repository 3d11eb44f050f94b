// Package plugin implements the step-execution handshake: the host announces
// that a step is running, and the plugin reports exactly one outcome after
// an optional user prompt.
package plugin

import (
	"fmt"
	"log/slog"

	"github.com/ormasoftchile/promptgate/pkg/fields"
	"github.com/ormasoftchile/promptgate/pkg/options"
	"github.com/ormasoftchile/promptgate/pkg/prompt"
	"github.com/ormasoftchile/promptgate/pkg/signal"
	"github.com/ormasoftchile/promptgate/pkg/uithread"
)

// Outcome is the three-valued step result reported to the host. The empty
// string means success (the host's None), matching the wire taxonomy
// {None, "Retry", "Fail"}.
type Outcome string

const (
	Continue Outcome = ""
	// Retry is part of the host taxonomy for interface compatibility.
	// No code path in this plugin produces it.
	Retry Outcome = "Retry"
	Fail  Outcome = "Fail"
)

func (o Outcome) String() string {
	if o == Continue {
		return "continue"
	}
	return string(o)
}

// Host is the protocol runner driving step execution. CurrentStep is the
// zero-based index of the step being run; OnStepComplete receives exactly
// one outcome per OnStepRun invocation.
type Host interface {
	CurrentStep() int
	OnStepComplete(plugin string, outcome Outcome)
}

// MenuItem is one entry the plugin contributes to the host's tools menu.
// Activate is called by the host's UI loop, on the UI goroutine.
type MenuItem struct {
	Label    string
	Activate func()
}

// MenuSurface is implemented by hosts that expose a tools menu.
type MenuSurface interface {
	AddMenuItem(item MenuItem)
	RemoveMenuItem(label string)
}

const editMenuLabel = "Set step prompt..."

// Plugin is a single step-prompt plugin instance. One prompt is active at a
// time; the host does not announce the next step until the current outcome
// has been reported.
type Plugin struct {
	name     string
	host     Host
	store    options.Store
	renderer prompt.Renderer
	disp     *uithread.Dispatcher
	log      *slog.Logger

	// PromptAccepted fires on every accepted prompt with the collected
	// values (empty map for plain acknowledgements).
	PromptAccepted signal.Signal[map[string]any]
}

// New wires a plugin instance. The renderer is always driven through disp,
// so callers may invoke OnStepRun from any goroutine.
func New(name string, host Host, store options.Store, renderer prompt.Renderer, disp *uithread.Dispatcher, log *slog.Logger) *Plugin {
	if log == nil {
		log = slog.Default()
	}
	p := &Plugin{
		name:     name,
		host:     host,
		store:    store,
		renderer: renderer,
		disp:     disp,
		log:      log,
	}
	p.PromptAccepted.Subscribe(func(values map[string]any) {
		p.log.Info("step prompt accepted", "plugin", p.name, "values", values)
	})
	return p
}

// Name returns the plugin name attached to every reported outcome.
func (p *Plugin) Name() string { return p.name }

// SubscribePromptAccepted registers an observer for accepted prompts.
func (p *Plugin) SubscribePromptAccepted(fn func(map[string]any)) {
	p.PromptAccepted.Subscribe(fn)
}

// OnStepRun handles the host's step-run announcement. Every branch reports
// exactly one outcome; the host is never left waiting and never hears twice.
func (p *Plugin) OnStepRun() {
	step := p.host.CurrentStep()
	p.log.Info("step run", "plugin", p.name, "step", step)

	opts, err := p.store.StepOptions(step)
	if err != nil {
		p.log.Error("read step options", "step", step, "error", err)
		p.host.OnStepComplete(p.name, Fail)
		return
	}

	// Fast path: nothing configured, nothing to show.
	if opts.Empty() {
		p.host.OnStepComplete(p.name, Continue)
		return
	}

	res := p.runPrompt(step, opts)
	switch res.Disposition {
	case prompt.Accepted:
		p.PromptAccepted.Emit(res.Values)
		p.host.OnStepComplete(p.name, Continue)
	case prompt.Cancelled:
		// Expected operator action, not a system fault.
		p.log.Warn("protocol stop requested", "plugin", p.name, "step", step)
		p.host.OnStepComplete(p.name, Fail)
	default:
		p.log.Error("step prompt failed", "plugin", p.name, "step", step, "error", res.Err)
		p.host.OnStepComplete(p.name, Fail)
	}
}

// runPrompt builds the render request and marshals it onto the UI
// goroutine, blocking until the operator responds.
func (p *Plugin) runPrompt(step int, opts options.StepOptions) prompt.Result {
	req := prompt.Request{Message: opts.Message}
	if opts.Schema != "" {
		sch, err := fields.Parse(opts.Schema)
		if err != nil {
			return prompt.Fault(fmt.Errorf("parse step %d schema: %w", step, err))
		}
		req.Fields = sch.Fields
	}
	req.Title = prompt.Title(step, opts.Message, req.Structured())

	var res prompt.Result
	if err := p.disp.Invoke(func() error {
		res = p.renderer.Render(req)
		return nil
	}); err != nil {
		return prompt.Fault(fmt.Errorf("dispatch prompt: %w", err))
	}
	return res
}

// OnPluginEnable contributes the options menu entry. Menu construction is
// fire-and-forget with respect to the caller.
func (p *Plugin) OnPluginEnable() {
	ms, ok := p.host.(MenuSurface)
	if !ok {
		return
	}
	if err := p.disp.Post(func() {
		ms.AddMenuItem(MenuItem{Label: editMenuLabel, Activate: p.EditStepOptions})
	}); err != nil {
		p.log.Error("add menu item", "error", err)
	}
}

// OnPluginDisable removes the menu entry, also fire-and-forget.
func (p *Plugin) OnPluginDisable() {
	ms, ok := p.host.(MenuSurface)
	if !ok {
		return
	}
	if err := p.disp.Post(func() {
		ms.RemoveMenuItem(editMenuLabel)
	}); err != nil {
		p.log.Error("remove menu item", "error", err)
	}
}

// EditStepOptions opens the two-field edit form for the current step and
// writes the result back through the store. A schema that fails validation
// is normalized to empty and logged; the edit itself always succeeds.
// Runs on the UI goroutine — menu activation already happens there, so the
// renderer is called directly rather than through the dispatcher.
func (p *Plugin) EditStepOptions() {
	step := p.host.CurrentStep()
	cur, err := p.store.StepOptions(step)
	if err != nil {
		p.log.Error("read step options for edit", "step", step, "error", err)
		return
	}

	res := p.renderer.Render(prompt.Request{
		Title:  fmt.Sprintf("Step %d prompt options", step+1),
		Fields: editFields(cur),
	})
	if res.Disposition != prompt.Accepted {
		if res.Disposition == prompt.Faulted {
			p.log.Error("options edit failed", "step", step, "error", res.Err)
		}
		return
	}

	next := options.Normalize(options.StepOptions{
		Message: stringValue(res.Values["message"]),
		Schema:  stringValue(res.Values["schema"]),
	}, p.log)
	if err := p.store.SetStepOptions(step, next); err != nil {
		p.log.Error("save step options", "step", step, "error", err)
	}
}

// editFields builds the built-in options form: message and raw schema text.
func editFields(cur options.StepOptions) []fields.Field {
	return []fields.Field{
		{Name: "message", Kind: fields.KindString, Label: "Message", Default: cur.Message},
		{Name: "schema", Kind: fields.KindString, Label: "Schema (JSON)", Default: cur.Schema},
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
