// Package mcp exposes promptgate's configuration surface as MCP tools so
// editors and agents can inspect and edit step prompts without running the
// interactive UI.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the promptgate tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"promptgate",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("promptgate/validate-schema",
			mcp.WithDescription("Validate prompt schema JSON text and report the derived fields"),
			mcp.WithString("schema", mcp.Required(), mcp.Description("Prompt schema JSON text")),
		),
		HandleValidateSchema,
	)

	s.AddTool(
		mcp.NewTool("promptgate/get-step-options",
			mcp.WithDescription("Read the prompt options of one step in a protocol file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the protocol YAML file")),
			mcp.WithNumber("step", mcp.Required(), mcp.Description("Zero-based step index")),
		),
		HandleGetStepOptions,
	)

	s.AddTool(
		mcp.NewTool("promptgate/set-step-options",
			mcp.WithDescription("Write the prompt options of one step; an invalid schema is persisted as empty, as in the interactive edit flow"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the protocol YAML file")),
			mcp.WithNumber("step", mcp.Required(), mcp.Description("Zero-based step index")),
			mcp.WithString("message", mcp.Description("Prompt message text")),
			mcp.WithString("schema", mcp.Description("Prompt schema JSON text")),
		),
		HandleSetStepOptions,
	)

	s.AddTool(
		mcp.NewTool("promptgate/schema",
			mcp.WithDescription("Export the JSON Schema that prompt schema documents must satisfy"),
		),
		HandleSchema,
	)

	return s
}
