package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

// PlainRenderer prompts line by line on a plain terminal using readline.
// It is the fallback for environments where the full-screen form cannot
// run (dumb terminals, CI consoles, --plain).
type PlainRenderer struct {
	// Stdin/Stdout override the terminal streams, mainly for tests.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Render blocks until the operator accepts or cancels the prompt.
// Ctrl+C and EOF are cancellation.
func (r *PlainRenderer) Render(req Request) Result {
	cfg := &readline.Config{Prompt: "> "}
	if r.Stdin != nil {
		cfg.Stdin = r.Stdin
	}
	if r.Stdout != nil {
		cfg.Stdout = r.Stdout
		cfg.ForceUseInteractive = true
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return Fault(fmt.Errorf("init readline: %w", err))
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintf(out, "\n=== %s ===\n", req.Title)

	if !req.Structured() {
		if req.Message != "" {
			fmt.Fprintln(out, req.Message)
		}
		fmt.Fprintln(out, "Press Enter to continue, Ctrl+C to cancel.")
		if _, err := rl.Readline(); err != nil {
			if isCancel(err) {
				return Cancel()
			}
			return Fault(fmt.Errorf("read acknowledgement: %w", err))
		}
		return Accept(nil)
	}

	values := make(map[string]any, len(req.Fields))
	for i := range req.Fields {
		f := &req.Fields[i]
		val, err := r.askField(rl, f)
		if err != nil {
			if isCancel(err) {
				return Cancel()
			}
			return Fault(err)
		}
		values[f.Name] = val
	}
	return Accept(values)
}

// askField re-asks until the entered value converts and satisfies the
// field's constraint.
func (r *PlainRenderer) askField(rl *readline.Instance, f *fields.Field) (any, error) {
	out := rl.Stdout()
	prompt := f.Label
	if f.Kind == fields.KindEnum {
		prompt = fmt.Sprintf("%s (%s)", f.Label, strings.Join(f.Choices, "/"))
	}
	if f.Default != nil {
		prompt = fmt.Sprintf("%s [%v]", prompt, f.Default)
	}
	rl.SetPrompt(prompt + ": ")

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil, fmt.Errorf("read field %s: %w", f.Name, err)
		}
		val, err := f.Convert(line)
		if err == nil {
			err = f.Check(val)
		}
		if err != nil {
			fmt.Fprintf(out, "  ✗ %v\n", err)
			continue
		}
		return val, nil
	}
}

func isCancel(err error) bool {
	return errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) ||
		strings.Contains(err.Error(), "Interrupt")
}
