package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func newEvaluateBranchTool() mcp.Tool {
	return mcp.NewTool(
		"evaluate-branch",
		mcp.WithDescription("Score a branch across all quality dimensions and apply any lifecycle transition the score calls for."),
		mcp.WithString("branchId", mcp.Description("Branch to evaluate."), mcp.Required()),
		mcp.WithString("goal", mcp.Description("Optional goal text; enables goal-alignment scoring.")),
	)
}

func (r *Registry) handleEvaluateBranch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := r.engine.EvaluateBranch(ctx, stringArg(req, "branchId"), stringArg(req, "goal"))
	if err != nil {
		return fail(err)
	}
	return ok(result)
}

func newPruneBranchesTool() mcp.Tool {
	return mcp.NewTool(
		"prune-branches",
		mcp.WithDescription("Remove every branch whose latest evaluation score falls below the threshold. Irreversible."),
		mcp.WithNumber("threshold", mcp.Description("Score floor in [0,1]. Defaults to the configured pruning threshold.")),
	)
}

func (r *Registry) handlePruneBranches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := r.engine.Prune(ctx, floatArg(req, "threshold", -1))
	if err != nil {
		return fail(err)
	}
	return ok(report)
}
