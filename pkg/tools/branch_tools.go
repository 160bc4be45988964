package tools

import (
	"context"

	"github.com/cohesivestack/valgo"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
)

func newCreateBranchTool() mcp.Tool {
	return mcp.NewTool(
		"create-branch",
		mcp.WithDescription("Create a reasoning branch explicitly, optionally under a parent."),
		mcp.WithString("branchId", mcp.Description("Branch id. Generated when omitted.")),
		mcp.WithString("parentBranchId", mcp.Description("Existing branch to link under.")),
	)
}

func (r *Registry) handleCreateBranch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branch, err := r.engine.CreateBranch(stringArg(req, "branchId"), stringArg(req, "parentBranchId"))
	if err != nil {
		return fail(err)
	}
	return ok(branch)
}

func newLinkBranchesTool() mcp.Tool {
	return mcp.NewTool(
		"link-branches",
		mcp.WithDescription("Attach one branch under another. Rejects links that would close a cycle."),
		mcp.WithString("parentBranchId", mcp.Description("The parent branch."), mcp.Required()),
		mcp.WithString("childBranchId", mcp.Description("The branch to attach."), mcp.Required()),
	)
}

func (r *Registry) handleLinkBranches(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := stringArg(req, "parentBranchId")
	childID := stringArg(req, "childBranchId")

	if err := r.engine.LinkBranches(parentID, childID); err != nil {
		return fail(err)
	}
	return ok(map[string]string{"parentId": parentID, "childId": childID})
}

func newAddCrossRefTool() mcp.Tool {
	return mcp.NewTool(
		"add-cross-ref",
		mcp.WithDescription("Record a typed, weighted cross-reference between two branches."),
		mcp.WithString("fromBranchId", mcp.Description("Owning branch."), mcp.Required()),
		mcp.WithString("toBranchId", mcp.Description("Referenced branch."), mcp.Required()),
		mcp.WithString("type", mcp.Description("One of complementary, contradictory, builds_upon, alternative."), mcp.Required()),
		mcp.WithString("reason", mcp.Description("Why the branches relate.")),
		mcp.WithNumber("strength", mcp.Description("Link strength in [0,1]. Defaults to 0.5.")),
	)
}

func (r *Registry) handleAddCrossRef(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromID := stringArg(req, "fromBranchId")
	toID := stringArg(req, "toBranchId")
	strength := floatArg(req, "strength", 0.5)

	validation := valgo.Is(
		valgo.String(fromID, "fromBranchId").Not().Blank(),
		valgo.String(toID, "toBranchId").Not().Blank(),
		valgo.Number(strength, "strength").GreaterOrEqualTo(0).LessOrEqualTo(1),
	)
	if !validation.Valid() {
		return fail(errors.Newf(errors.KindValidation, "invalid payload: %v", validation.Error()))
	}

	err := r.engine.AddCrossRef(fromID, toID,
		graph.CrossRefType(stringArg(req, "type")), stringArg(req, "reason"), strength)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]string{"fromBranchId": fromID, "toBranchId": toID})
}

func newFocusBranchTool() mcp.Tool {
	return mcp.NewTool(
		"focus-branch",
		mcp.WithDescription("Switch the active branch."),
		mcp.WithString("branchId", mcp.Description("Branch to focus."), mcp.Required()),
	)
}

func (r *Registry) handleFocusBranch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID := stringArg(req, "branchId")
	if err := r.engine.Focus(branchID); err != nil {
		return fail(err)
	}
	return ok(map[string]string{"activeBranch": branchID})
}

func newListBranchesTool() mcp.Tool {
	return mcp.NewTool(
		"list-branches",
		mcp.WithDescription("Summarize every branch: state, priority, confidence, thought count and latest score."),
	)
}

func (r *Registry) handleListBranches(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return ok(r.engine.Stats())
}

func newStrongestPathsTool() mcp.Tool {
	return mcp.NewTool(
		"strongest-paths",
		mcp.WithDescription("Rank a branch's cross-references by strength."),
		mcp.WithString("branchId", mcp.Description("Branch whose references to rank."), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum references to return. Defaults to 5.")),
	)
}

func (r *Registry) handleStrongestPaths(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := r.engine.FindStrongestPaths(stringArg(req, "branchId"), intArg(req, "limit", 5))
	if err != nil {
		return fail(err)
	}
	return ok(refs)
}
