package tools

import (
	"context"

	"github.com/cohesivestack/valgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dendrite-ai/dendrite/pkg/errors"
)

func newFindSimilarTool() mcp.Tool {
	return mcp.NewTool(
		"find-similar",
		mcp.WithDescription("Rank all thoughts by semantic similarity to a query."),
		mcp.WithString("query", mcp.Description("Text to compare against."), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Number of matches to return. Defaults to 5.")),
	)
}

func (r *Registry) handleFindSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matches, err := r.engine.Navigator().FindSimilar(ctx, stringArg(req, "query"), intArg(req, "limit", 5))
	if err != nil {
		return fail(err)
	}
	return ok(matches)
}

func newSemanticPathTool() mcp.Tool {
	return mcp.NewTool(
		"semantic-path",
		mcp.WithDescription("Walk greedily between two thoughts by similarity. The result may be partial; check 'reached'."),
		mcp.WithString("fromThoughtId", mcp.Description("Starting thought."), mcp.Required()),
		mcp.WithString("toThoughtId", mcp.Description("Target thought."), mcp.Required()),
		mcp.WithNumber("maxSteps", mcp.Description("Step budget. Defaults to 10.")),
	)
}

func (r *Registry) handleSemanticPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromID := stringArg(req, "fromThoughtId")
	toID := stringArg(req, "toThoughtId")

	validation := valgo.Is(
		valgo.String(fromID, "fromThoughtId").Not().Blank(),
		valgo.String(toID, "toThoughtId").Not().Blank(),
	)
	if !validation.Valid() {
		return fail(errors.Newf(errors.KindValidation, "invalid payload: %v", validation.Error()))
	}

	path, err := r.engine.Navigator().FindSemanticPath(ctx, fromID, toID, intArg(req, "maxSteps", 10))
	if err != nil {
		return fail(err)
	}
	return ok(path)
}

func newSuggestMergesTool() mcp.Tool {
	return mcp.NewTool(
		"suggest-merges",
		mcp.WithDescription("Propose merging active branches whose semantic profiles are close."),
		mcp.WithNumber("minSimilarity", mcp.Description("Similarity floor in [-1,1]. Defaults to 0.8.")),
	)
}

func (r *Registry) handleSuggestMerges(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	suggestions, err := r.engine.Navigator().SuggestMerges(floatArg(req, "minSimilarity", 0.8))
	if err != nil {
		return fail(err)
	}
	return ok(suggestions)
}

func newDetectDriftTool() mcp.Tool {
	return mcp.NewTool(
		"detect-drift",
		mcp.WithDescription("Check how far a branch's recent thoughts drifted from its semantic center."),
		mcp.WithString("branchId", mcp.Description("Branch to check."), mcp.Required()),
		mcp.WithNumber("window", mcp.Description("Recent thoughts to consider. Defaults to 5.")),
	)
}

func (r *Registry) handleDetectDrift(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := r.engine.Navigator().DetectDrift(ctx, stringArg(req, "branchId"), intArg(req, "window", 5))
	if err != nil {
		return fail(err)
	}
	return ok(report)
}
