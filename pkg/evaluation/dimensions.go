package evaluation

import (
	"context"
	"strings"

	"github.com/dendrite-ai/dendrite/pkg/graph"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
)

// window returns the last n thoughts of a branch, the slice the windowed
// dimensions score over.
func window(b *graph.Branch, n int) []graph.Thought {
	if n <= 0 || n >= len(b.Thoughts) {
		return b.Thoughts
	}
	return b.Thoughts[len(b.Thoughts)-n:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

/*
coherenceEvaluator scores how smoothly consecutive thoughts follow each
other: the mean cosine similarity of adjacent thought embeddings, rescaled to
[0,1]. A branch with fewer than two thoughts has nothing to contradict its
flow yet and scores an optimistic 0.75.
*/
type coherenceEvaluator struct {
	nav        *semantic.Navigator
	windowSize int
}

func (e *coherenceEvaluator) Dimension() Dimension { return Coherence }

func (e *coherenceEvaluator) Evaluate(ctx context.Context, branch, _ *graph.Branch, _ string) (float64, error) {
	thoughts := window(branch, e.windowSize)
	if len(thoughts) < 2 {
		return 0.75, nil
	}

	var total float64
	pairs := 0
	for i := 1; i < len(thoughts); i++ {
		prev, err := e.nav.EmbeddingFor(ctx, thoughts[i-1])
		if err != nil {
			return 0, err
		}
		curr, err := e.nav.EmbeddingFor(ctx, thoughts[i])
		if err != nil {
			return 0, err
		}
		sim, err := semantic.CosineSimilarity(prev, curr)
		if err != nil {
			return 0, err
		}
		total += sim
		pairs++
	}

	return clamp01((total/float64(pairs) + 1) / 2), nil
}

var negationMarkers = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true,
	"cant": true, "wont": true, "dont": true, "isnt": true,
	"arent": true, "without": true, "neither": true,
}

func negationCount(text string) int {
	count := 0
	for _, w := range semantic.Tokenize(strings.ReplaceAll(text, "'", "")) {
		if negationMarkers[w] {
			count++
		}
	}
	return count
}

/*
contradictionEvaluator flags thought pairs that share most of their
vocabulary but differ in negation-marker parity, the classic "X" vs "not X"
shape. The raw score is the flagged share of all pairs in the window; lower
is better, inversion happens at aggregation.
*/
type contradictionEvaluator struct {
	windowSize int
}

func (e *contradictionEvaluator) Dimension() Dimension { return Contradiction }

func (e *contradictionEvaluator) Evaluate(_ context.Context, branch, _ *graph.Branch, _ string) (float64, error) {
	thoughts := window(branch, e.windowSize)
	if len(thoughts) < 2 {
		return 0, nil
	}

	flagged, pairs := 0, 0
	for i := 0; i < len(thoughts); i++ {
		for j := i + 1; j < len(thoughts); j++ {
			pairs++
			overlap := semantic.LexicalSimilarity(thoughts[i].Content, thoughts[j].Content)
			if overlap < 0.6 {
				continue
			}
			if (negationCount(thoughts[i].Content)+negationCount(thoughts[j].Content))%2 == 1 {
				flagged++
			}
		}
	}

	return float64(flagged) / float64(pairs), nil
}

/*
informationGainEvaluator rewards branches whose thoughts keep adding new
material. Each thought's novelty is 1 minus its highest lexical similarity to
any earlier thought in the branch; the score is the mean novelty.
*/
type informationGainEvaluator struct {
	windowSize int
}

func (e *informationGainEvaluator) Dimension() Dimension { return InformationGain }

func (e *informationGainEvaluator) Evaluate(_ context.Context, branch, _ *graph.Branch, _ string) (float64, error) {
	thoughts := window(branch, e.windowSize)
	if len(thoughts) == 0 {
		return 0, nil
	}

	var total float64
	for i, t := range thoughts {
		maxSim := 0.0
		for j := 0; j < i; j++ {
			if sim := semantic.LexicalSimilarity(thoughts[j].Content, t.Content); sim > maxSim {
				maxSim = sim
			}
		}
		total += 1 - maxSim
	}

	return total / float64(len(thoughts)), nil
}

/*
goalAlignmentEvaluator measures how close the branch's semantic center sits
to the stated goal. Without a goal the dimension is neutral at 0.5 so it
neither rewards nor punishes.
*/
type goalAlignmentEvaluator struct {
	nav      *semantic.Navigator
	embedder semantic.Embedder
}

func (e *goalAlignmentEvaluator) Dimension() Dimension { return GoalAlignment }

func (e *goalAlignmentEvaluator) Evaluate(ctx context.Context, branch, _ *graph.Branch, goal string) (float64, error) {
	if strings.TrimSpace(goal) == "" {
		return 0.5, nil
	}

	center := branchCenter(ctx, e.nav, branch)
	if center == nil {
		return 0.5, nil
	}

	goalVec, err := e.embedder.Embed(ctx, goal)
	if err != nil {
		return 0, err
	}
	sim, err := semantic.CosineSimilarity(center, goalVec)
	if err != nil {
		return 0, err
	}

	return clamp01((sim + 1) / 2), nil
}

// branchCenter prefers the maintained profile centroid and falls back to
// averaging the branch's thought embeddings when no profile exists yet.
func branchCenter(ctx context.Context, nav *semantic.Navigator, b *graph.Branch) []float32 {
	if b.Profile != nil && len(b.Profile.CenterEmbedding) > 0 {
		return b.Profile.CenterEmbedding
	}

	var center []float32
	for i, t := range b.Thoughts {
		vec, err := nav.EmbeddingFor(ctx, t)
		if err != nil {
			return nil
		}
		if center == nil {
			center = make([]float32, len(vec))
		}
		for j := range vec {
			center[j] = (center[j]*float32(i) + vec[j]) / float32(i+1)
		}
	}
	return center
}

/*
confidenceGradientEvaluator fits a least-squares line through the window's
thought confidences and reports the fitted total change, clamped to the
dimension's native [-1,1] range. Positive means the author is gaining
conviction.
*/
type confidenceGradientEvaluator struct {
	windowSize int
}

func (e *confidenceGradientEvaluator) Dimension() Dimension { return ConfidenceGradient }

func (e *confidenceGradientEvaluator) Evaluate(_ context.Context, branch, _ *graph.Branch, _ string) (float64, error) {
	thoughts := window(branch, e.windowSize)
	n := len(thoughts)
	if n < 2 {
		return 0, nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, t := range thoughts {
		x, y := float64(i), t.Metadata.Confidence
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, nil
	}
	slope := (fn*sumXY - sumX*sumY) / denom

	change := slope * float64(n-1)
	if change < -1 {
		change = -1
	}
	if change > 1 {
		change = 1
	}
	return change, nil
}

/*
redundancyEvaluator scores repetition: the larger of the duplicate-content
ratio and the mean pairwise lexical similarity across the window. Three
identical thoughts score 1.0. Lower is better; inversion happens at
aggregation.
*/
type redundancyEvaluator struct {
	windowSize int
}

func (e *redundancyEvaluator) Dimension() Dimension { return Redundancy }

func (e *redundancyEvaluator) Evaluate(_ context.Context, branch, _ *graph.Branch, _ string) (float64, error) {
	thoughts := window(branch, e.windowSize)
	n := len(thoughts)
	if n < 2 {
		return 0, nil
	}

	unique := map[string]bool{}
	for _, t := range thoughts {
		unique[strings.TrimSpace(t.Content)] = true
	}
	dupRatio := float64(n-len(unique)) / float64(n-1)

	var total float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += semantic.LexicalSimilarity(thoughts[i].Content, thoughts[j].Content)
			pairs++
		}
	}
	meanPairwise := total / float64(pairs)

	if dupRatio > meanPairwise {
		return dupRatio, nil
	}
	return meanPairwise, nil
}

// defaultEvaluators wires the six production dimensions.
func defaultEvaluators(nav *semantic.Navigator, embedder semantic.Embedder, windowSize int) []Evaluator {
	return []Evaluator{
		&coherenceEvaluator{nav: nav, windowSize: windowSize},
		&contradictionEvaluator{windowSize: windowSize},
		&informationGainEvaluator{windowSize: windowSize},
		&goalAlignmentEvaluator{nav: nav, embedder: embedder},
		&confidenceGradientEvaluator{windowSize: windowSize},
		&redundancyEvaluator{windowSize: windowSize},
	}
}
