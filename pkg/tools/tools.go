package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dendrite-ai/dendrite/pkg/engine"
	"github.com/dendrite-ai/dendrite/pkg/errors"
)

/*
Registry binds the engine to its MCP tool surface. Every handler is a total
function from the caller's perspective: it returns either the operation
result serialized as JSON or the structured error payload, never an uncaught
error.
*/
type Registry struct {
	engine *engine.Engine
}

func NewRegistry(eng *engine.Engine) *Registry {
	return &Registry{engine: eng}
}

// RegisterAll adds every tool to the server.
func (r *Registry) RegisterAll(srv *server.MCPServer) {
	srv.AddTool(newAddThoughtTool(), r.handleAddThought)
	srv.AddTool(newBranchHistoryTool(), r.handleBranchHistory)
	srv.AddTool(newSearchThoughtsTool(), r.handleSearchThoughts)

	srv.AddTool(newCreateBranchTool(), r.handleCreateBranch)
	srv.AddTool(newLinkBranchesTool(), r.handleLinkBranches)
	srv.AddTool(newAddCrossRefTool(), r.handleAddCrossRef)
	srv.AddTool(newFocusBranchTool(), r.handleFocusBranch)
	srv.AddTool(newListBranchesTool(), r.handleListBranches)
	srv.AddTool(newStrongestPathsTool(), r.handleStrongestPaths)

	srv.AddTool(newFindSimilarTool(), r.handleFindSimilar)
	srv.AddTool(newSemanticPathTool(), r.handleSemanticPath)
	srv.AddTool(newSuggestMergesTool(), r.handleSuggestMerges)
	srv.AddTool(newDetectDriftTool(), r.handleDetectDrift)

	srv.AddTool(newEvaluateBranchTool(), r.handleEvaluateBranch)
	srv.AddTool(newPruneBranchesTool(), r.handlePruneBranches)

	srv.AddTool(newExportGraphTool(), r.handleExportGraph)
	srv.AddTool(newImportGraphTool(), r.handleImportGraph)
	srv.AddTool(newGetStatsTool(), r.handleGetStats)
}

// ok serializes a successful result.
func ok(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(errors.Newf(errors.KindUnknown, "failed to serialize result: %v", err))
	}
	return mcp.NewToolResultText(string(data)), nil
}

// fail serializes any error to the {error, status: "failed"} payload shape.
func fail(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(errors.PayloadJSON(err)), nil
}

func stringArg(req mcp.CallToolRequest, key string) string {
	if v, found := req.GetArguments()[key].(string); found {
		return v
	}
	return ""
}

func floatArg(req mcp.CallToolRequest, key string, fallback float64) float64 {
	if v, found := req.GetArguments()[key].(float64); found {
		return v
	}
	return fallback
}

func intArg(req mcp.CallToolRequest, key string, fallback int) int {
	if v, found := req.GetArguments()[key].(float64); found {
		return int(v)
	}
	return fallback
}

func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	raw, found := req.GetArguments()[key].([]any)
	if !found {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, isString := item.(string); isString {
			out = append(out, s)
		}
	}
	return out
}
