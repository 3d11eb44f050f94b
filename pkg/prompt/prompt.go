// Package prompt renders blocking user-facing prompts for step execution:
// a plain acknowledge/cancel message, or a structured form generated from a
// field schema. Renderers return a tri-state Result; interpretation is left
// to the caller.
package prompt

import (
	"fmt"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

// Disposition classifies how a prompt ended.
type Disposition int

const (
	// Accepted means the operator confirmed the prompt; Values holds the
	// entered field values (empty map in message mode).
	Accepted Disposition = iota
	// Cancelled means the operator declined the prompt.
	Cancelled
	// Faulted means the prompt could not be presented or failed
	// internally; Err carries the detail.
	Faulted
)

func (d Disposition) String() string {
	switch d {
	case Accepted:
		return "accepted"
	case Cancelled:
		return "cancelled"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// Result is produced once per render and consumed immediately.
type Result struct {
	Disposition Disposition
	Values      map[string]any
	Err         error
}

// Accept builds an Accepted result. A nil values map is normalized to an
// empty one so message-mode acceptance always carries {}.
func Accept(values map[string]any) Result {
	if values == nil {
		values = map[string]any{}
	}
	return Result{Disposition: Accepted, Values: values}
}

// Cancel builds a Cancelled result.
func Cancel() Result {
	return Result{Disposition: Cancelled}
}

// Fault builds a Faulted result carrying err.
func Fault(err error) Result {
	return Result{Disposition: Faulted, Err: err}
}

// Request describes one prompt. An empty Fields slice selects message mode.
type Request struct {
	Title   string
	Message string
	Fields  []fields.Field
}

// Structured reports whether the request renders an input form.
func (r Request) Structured() bool {
	return len(r.Fields) > 0
}

// Renderer presents a prompt and blocks until the operator responds.
// Implementations must be driven from the UI-owning goroutine.
type Renderer interface {
	Render(req Request) Result
}

// Title builds the dialog title for a step. stepIndex is zero-based; the
// operator-facing number is one-based. When a message accompanies a
// structured form the message is folded into the title, since the form body
// is occupied by inputs.
func Title(stepIndex int, message string, structured bool) string {
	title := fmt.Sprintf("Step %d", stepIndex+1)
	if structured && message != "" {
		return fmt.Sprintf("[%s] %s", title, message)
	}
	return title
}
