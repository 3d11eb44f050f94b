package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/promptgate/pkg/options"
	"github.com/ormasoftchile/promptgate/pkg/plugin"
	"github.com/ormasoftchile/promptgate/pkg/prompt"
	"github.com/ormasoftchile/promptgate/pkg/uithread"
)

var editPlain bool

var editCmd = &cobra.Command{
	Use:   "edit [protocol.yaml] [step]",
	Short: "Edit the prompt options of one step interactively",
	Long: `Open the step prompt options form (message and schema) for the given
zero-based step index and write the result back to the protocol file.
A schema that fails validation is cleared rather than saved.`,
	Args: cobra.ExactArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().BoolVar(&editPlain, "plain", false, "use line-based prompts instead of the full-screen form")
}

// editHost pins the plugin's current step to the index being edited.
type editHost struct {
	step int
}

func (h *editHost) CurrentStep() int                      { return h.step }
func (h *editHost) OnStepComplete(string, plugin.Outcome) {}

func runEdit(cmd *cobra.Command, args []string) error {
	step, err := strconv.Atoi(args[1])
	if err != nil || step < 0 {
		return fmt.Errorf("step must be a non-negative integer, got %q", args[1])
	}
	store, err := options.OpenFile(args[0])
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	var renderer prompt.Renderer = prompt.NewFormRenderer()
	if editPlain {
		renderer = &prompt.PlainRenderer{}
	}

	disp := uithread.New(log)
	defer disp.Close()
	p := plugin.New("user-prompt", &editHost{step: step}, store, renderer, disp, log)

	// Menu activation normally happens on the UI goroutine; here the main
	// goroutine plays that role directly.
	p.EditStepOptions()

	opts, err := store.StepOptions(step)
	if err != nil {
		return err
	}
	fmt.Printf("step %d: message=%q schema=%q\n", step, opts.Message, opts.Schema)
	return nil
}
