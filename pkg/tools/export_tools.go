package tools

import (
	"bytes"
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func newExportGraphTool() mcp.Tool {
	return mcp.NewTool(
		"export-graph",
		mcp.WithDescription("Export the full graph as chunked JSONL: header, thoughts, branches, relationships, events."),
	)
}

func (r *Registry) handleExportGraph(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := r.engine.Export(&buf); err != nil {
		return fail(err)
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func newImportGraphTool() mcp.Tool {
	return mcp.NewTool(
		"import-graph",
		mcp.WithDescription("Replace the graph with a previously exported JSONL payload. Re-exporting immediately yields the same graph."),
		mcp.WithString("payload", mcp.Description("The JSONL export stream."), mcp.Required()),
	)
}

func (r *Registry) handleImportGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := r.engine.Import(strings.NewReader(stringArg(req, "payload"))); err != nil {
		return fail(err)
	}
	return ok(r.engine.Stats())
}

func newGetStatsTool() mcp.Tool {
	return mcp.NewTool(
		"get-stats",
		mcp.WithDescription("Engine totals plus a per-branch summary."),
	)
}

func (r *Registry) handleGetStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return ok(r.engine.Stats())
}
