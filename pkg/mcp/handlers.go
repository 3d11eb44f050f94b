package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/promptgate/pkg/fields"
	"github.com/ormasoftchile/promptgate/pkg/options"
)

// HandleValidateSchema implements the promptgate/validate-schema tool.
func HandleValidateSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schema, _ := args["schema"].(string)
	if schema == "" {
		return errorResult("schema argument is required"), nil
	}

	s, err := fields.Parse(schema)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid: %v", err)), nil
	}
	var names []string
	for _, f := range s.Fields {
		names = append(names, fmt.Sprintf("%s (%s)", f.Name, f.Kind))
	}
	return textResult(fmt.Sprintf("✓ schema is valid: %s", strings.Join(names, ", "))), nil
}

// HandleGetStepOptions implements the promptgate/get-step-options tool.
func HandleGetStepOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	step, ok := stepArg(args)
	if !ok {
		return errorResult("step argument is required"), nil
	}

	store, err := options.OpenFile(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	opts, err := store.StepOptions(step)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleSetStepOptions implements the promptgate/set-step-options tool.
// The interactive edit-flow policy applies: a schema that fails validation
// is persisted as the empty string, and the write still succeeds.
func HandleSetStepOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	step, ok := stepArg(args)
	if !ok {
		return errorResult("step argument is required"), nil
	}
	message, _ := args["message"].(string)
	schema, _ := args["schema"].(string)

	store, err := options.OpenFile(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	opts := options.Normalize(options.StepOptions{Message: message, Schema: schema}, log)
	if err := store.SetStepOptions(step, opts); err != nil {
		return errorResult(err.Error()), nil
	}

	if schema != "" && opts.Schema == "" {
		return textResult(fmt.Sprintf("✓ step %d updated (schema was invalid and has been cleared)", step)), nil
	}
	return textResult(fmt.Sprintf("✓ step %d updated", step)), nil
}

// HandleSchema implements the promptgate/schema tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := fields.Export()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// stepArg extracts the step index; MCP numbers arrive as float64.
func stepArg(args map[string]any) (int, bool) {
	switch v := args["step"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
