package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/promptgate/pkg/options"
	"github.com/ormasoftchile/promptgate/pkg/plugin"
	"github.com/ormasoftchile/promptgate/pkg/prompt"
	"github.com/ormasoftchile/promptgate/pkg/runner"
	"github.com/ormasoftchile/promptgate/pkg/uithread"
)

var (
	runPlain  bool
	runScript string
	runTrace  string
)

var runCmd = &cobra.Command{
	Use:   "run [protocol.yaml]",
	Short: "Run a protocol, prompting the operator at each configured step",
	Long: `Walk the protocol's steps in order. Steps without a configured message
or schema pass through immediately; the rest block on an operator prompt.
A cancelled prompt halts the protocol.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "use line-based prompts instead of the full-screen form")
	runCmd.Flags().StringVar(&runScript, "script", "", "answer prompts from a YAML script instead of interactively")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "append a JSONL trace of step outcomes to this file")
}

func runRun(cmd *cobra.Command, args []string) error {
	store, err := options.OpenFile(args[0])
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var renderer prompt.Renderer
	switch {
	case runScript != "":
		renderer, err = prompt.LoadScript(runScript)
		if err != nil {
			return err
		}
	case runPlain:
		renderer = &prompt.PlainRenderer{}
	default:
		renderer = prompt.NewFormRenderer()
	}

	var trace *runner.TraceWriter
	if runTrace != "" {
		trace, err = runner.NewTraceWriter(runTrace)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	disp := uithread.New(log)
	reg := plugin.NewRegistry()
	r := runner.New(store, store.Len(), reg, log, trace)
	p := plugin.New("user-prompt", r, store, renderer, disp, log)
	if err := reg.Register(p); err != nil {
		return err
	}

	// The runner works on its own goroutine; the main goroutine owns the
	// prompt surface and drains the dispatcher.
	errc := make(chan error, 1)
	go func() {
		errc <- r.Run(context.Background())
		disp.Close()
	}()
	disp.Run()

	if err := <-errc; err != nil {
		return err
	}
	name := store.Name()
	if name == "" {
		name = args[0]
	}
	fmt.Printf("✓ %s: %d steps completed\n", name, store.Len())
	return nil
}
