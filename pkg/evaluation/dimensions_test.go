package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendrite-ai/dendrite/pkg/graph"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
)

// branchWith builds a detached branch whose thoughts carry the given contents
// and confidences, enough for the dimension evaluators which only read the
// Thoughts cache.
func branchWith(contents []string, confidences []float64) *graph.Branch {
	b := &graph.Branch{ID: "branch-test", State: graph.StateActive}
	for i, c := range contents {
		confidence := 0.5
		if i < len(confidences) {
			confidence = confidences[i]
		}
		b.Thoughts = append(b.Thoughts, graph.Thought{
			ID:      graph.ContentHash(c),
			Content: c,
			Metadata: graph.ThoughtMetadata{
				Confidence: confidence,
			},
		})
	}
	return b
}

func testNavigator() *semantic.Navigator {
	return semantic.NewNavigator(graph.NewStore(), semantic.NewMockEmbedder(), 64)
}

func TestCoherenceShortBranchIsOptimistic(t *testing.T) {
	e := &coherenceEvaluator{nav: testNavigator(), windowSize: 10}

	score, err := e.Evaluate(context.Background(), branchWith([]string{"only one"}, nil), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0.75, score)
}

func TestCoherenceRewardsRelatedSequence(t *testing.T) {
	e := &coherenceEvaluator{nav: testNavigator(), windowSize: 10}
	ctx := context.Background()

	related, err := e.Evaluate(ctx, branchWith([]string{
		"the index scan dominates query time",
		"the index scan needs a covering index",
		"a covering index removes the heap lookup",
	}, nil), nil, "")
	require.NoError(t, err)

	scattered, err := e.Evaluate(ctx, branchWith([]string{
		"the index scan dominates query time",
		"penguins huddle for warmth",
		"the violin section enters at bar twelve",
	}, nil), nil, "")
	require.NoError(t, err)

	assert.Greater(t, related, scattered)
	assert.GreaterOrEqual(t, related, 0.0)
	assert.LessOrEqual(t, related, 1.0)
}

func TestContradictionDetectsNegatedRestatement(t *testing.T) {
	e := &contradictionEvaluator{windowSize: 10}

	score, err := e.Evaluate(context.Background(), branchWith([]string{
		"the cache layer is the bottleneck",
		"the cache layer is not the bottleneck",
	}, nil), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestContradictionIgnoresUnrelatedNegations(t *testing.T) {
	e := &contradictionEvaluator{windowSize: 10}

	score, err := e.Evaluate(context.Background(), branchWith([]string{
		"we should not ship on fridays",
		"the deployment pipeline needs a canary stage",
	}, nil), nil, "")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestInformationGainPenalizesRestatement(t *testing.T) {
	e := &informationGainEvaluator{windowSize: 10}
	ctx := context.Background()

	fresh, err := e.Evaluate(ctx, branchWith([]string{
		"profile the allocator first",
		"check the socket buffer sizes",
		"inspect the scheduler run queue",
	}, nil), nil, "")
	require.NoError(t, err)

	stale, err := e.Evaluate(ctx, branchWith([]string{
		"profile the allocator first",
		"profile the allocator first thing",
		"first profile the allocator",
	}, nil), nil, "")
	require.NoError(t, err)

	assert.Greater(t, fresh, stale)
}

func TestGoalAlignmentNeutralWithoutGoal(t *testing.T) {
	nav := testNavigator()
	e := &goalAlignmentEvaluator{nav: nav, embedder: semantic.NewMockEmbedder()}

	score, err := e.Evaluate(context.Background(), branchWith([]string{"anything"}, nil), nil, "  ")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
}

func TestGoalAlignmentTracksGoal(t *testing.T) {
	nav := testNavigator()
	e := &goalAlignmentEvaluator{nav: nav, embedder: semantic.NewMockEmbedder()}
	ctx := context.Background()

	onTopic, err := e.Evaluate(ctx, branchWith([]string{
		"reduce checkout latency by caching the cart",
		"checkout latency drops with a warm cart cache",
	}, nil), nil, "reduce checkout latency")
	require.NoError(t, err)

	offTopic, err := e.Evaluate(ctx, branchWith([]string{
		"repaint the office walls in blue",
		"order new standing desks",
	}, nil), nil, "reduce checkout latency")
	require.NoError(t, err)

	assert.Greater(t, onTopic, offTopic)
}

func TestConfidenceGradientDirection(t *testing.T) {
	e := &confidenceGradientEvaluator{windowSize: 10}
	ctx := context.Background()

	rising, err := e.Evaluate(ctx, branchWith(
		[]string{"a", "b", "c"}, []float64{0.2, 0.5, 0.8}), nil, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, rising, 1e-9)

	falling, err := e.Evaluate(ctx, branchWith(
		[]string{"a", "b", "c"}, []float64{0.9, 0.5, 0.1}), nil, "")
	require.NoError(t, err)
	assert.InDelta(t, -0.8, falling, 1e-9)

	flat, err := e.Evaluate(ctx, branchWith(
		[]string{"a", "b"}, []float64{0.5, 0.5}), nil, "")
	require.NoError(t, err)
	assert.Zero(t, flat)
}

func TestConfidenceGradientClamps(t *testing.T) {
	e := &confidenceGradientEvaluator{windowSize: 10}

	// A perfect 0 -> 1 climb over two thoughts fits a total change of exactly
	// 1, the clamp boundary.
	score, err := e.Evaluate(context.Background(), branchWith(
		[]string{"a", "b"}, []float64{0, 1}), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestRedundancyIdenticalThoughtsScoreMaximal(t *testing.T) {
	e := &redundancyEvaluator{windowSize: 10}

	score, err := e.Evaluate(context.Background(), branchWith([]string{
		"we should use a bloom filter",
		"we should use a bloom filter",
		"we should use a bloom filter",
	}, nil), nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestRedundancyDistinctThoughtsScoreLow(t *testing.T) {
	e := &redundancyEvaluator{windowSize: 10}

	score, err := e.Evaluate(context.Background(), branchWith([]string{
		"partition the table by tenant",
		"compress cold segments nightly",
		"archive rows older than a year",
	}, nil), nil, "")
	require.NoError(t, err)
	assert.Less(t, score, 0.3)
}

func TestWindowBoundsTheScoredSlice(t *testing.T) {
	contents := []string{"one", "two", "three", "four", "five"}
	b := branchWith(contents, nil)

	assert.Len(t, window(b, 3), 3)
	assert.Equal(t, "three", window(b, 3)[0].Content)
	assert.Len(t, window(b, 0), 5)
	assert.Len(t, window(b, 10), 5)
}
