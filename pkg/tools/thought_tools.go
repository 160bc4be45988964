package tools

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dendrite-ai/dendrite/pkg/engine"
	"github.com/dendrite-ai/dendrite/pkg/errors"
)

func newAddThoughtTool() mcp.Tool {
	return mcp.NewTool(
		"add-thought",
		mcp.WithDescription("Record a thought on a reasoning branch. Creates the branch on first reference; identical content resolves to the existing thought."),
		mcp.WithString("content", mcp.Description("The thought text."), mcp.Required()),
		mcp.WithString("branchId", mcp.Description("Target branch. Defaults to the active branch, or a new branch when none is active.")),
		mcp.WithString("parentBranchId", mcp.Description("Parent to link a newly created branch under.")),
		mcp.WithString("type", mcp.Description("Thought classification, e.g. analysis, hypothesis, observation.")),
		mcp.WithNumber("confidence", mcp.Description("Confidence in [0,1]. Defaults to 0.5.")),
		mcp.WithArray("keyPoints", mcp.Description("Ordered key points extracted from the thought."),
			mcp.Items(map[string]any{"type": "string"})),
	)
}

func (r *Registry) handleAddThought(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := stringArg(req, "content")
	confidence := floatArg(req, "confidence", 0.5)

	validation := valgo.Is(
		valgo.String(content, "content").Not().Blank(),
		valgo.Number(confidence, "confidence").GreaterOrEqualTo(0).LessOrEqualTo(1),
	)
	if !validation.Valid() {
		return fail(errors.Newf(errors.KindValidation, "invalid payload: %v", validation.Error()))
	}

	result, err := r.engine.AddThought(ctx, engine.AddThoughtRequest{
		Content:        content,
		BranchID:       stringArg(req, "branchId"),
		ParentBranchID: stringArg(req, "parentBranchId"),
		Type:           stringArg(req, "type"),
		Confidence:     confidence,
		KeyPoints:      stringSliceArg(req, "keyPoints"),
	})
	if err != nil {
		return fail(err)
	}

	log.Debug("thought recorded", "branch", result.BranchID, "thought", result.Thought.ID)
	return ok(result)
}

func newBranchHistoryTool() mcp.Tool {
	return mcp.NewTool(
		"branch-history",
		mcp.WithDescription("List the thoughts of a branch in order, content truncated for display."),
		mcp.WithString("branchId", mcp.Description("Branch to inspect. Defaults to the active branch.")),
	)
}

func (r *Registry) handleBranchHistory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history, err := r.engine.History(stringArg(req, "branchId"))
	if err != nil {
		return fail(err)
	}
	return ok(history)
}

func newSearchThoughtsTool() mcp.Tool {
	return mcp.NewTool(
		"search-thoughts",
		mcp.WithDescription("Scan all thoughts with a regular expression over content."),
		mcp.WithString("query", mcp.Description("Regular expression to match."), mcp.Required()),
	)
}

func (r *Registry) handleSearchThoughts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matches, err := r.engine.Store().SearchThoughts(stringArg(req, "query"))
	if err != nil {
		return fail(err)
	}
	return ok(matches)
}
