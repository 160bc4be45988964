package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
)

/*
Pipeline runs the six scoring dimensions over a branch and merges them into
one weighted record. Scoring has no side effects on the Store; the Lifecycle
Controller records events and applies state transitions from the returned
result.
*/
type Pipeline struct {
	store      *graph.Store
	cfg        Config
	evaluators []Evaluator

	mu     sync.Mutex
	latest map[string]Result
}

// NewPipeline builds a pipeline with the production evaluators unless a
// custom set is supplied (tests inject deterministic ones).
func NewPipeline(store *graph.Store, nav *semantic.Navigator, embedder semantic.Embedder, cfg Config, evaluators ...Evaluator) *Pipeline {
	if len(evaluators) == 0 {
		evaluators = defaultEvaluators(nav, embedder, cfg.WindowSize)
	}
	return &Pipeline{
		store:      store,
		cfg:        cfg,
		evaluators: evaluators,
		latest:     make(map[string]Result),
	}
}

/*
EvaluateBranch computes all dimensions concurrently, merges them under the
configured weight vector and derives qualitative feedback. Contradiction and
redundancy are inverted before weighting since lower raw scores are better
there, and the confidence gradient is rescaled from [-1,1] to [0,1].
*/
func (p *Pipeline) EvaluateBranch(ctx context.Context, branchID, goal string) (Result, error) {
	branch, ok := p.store.GetBranch(branchID)
	if !ok {
		return Result{}, errors.Newf(errors.KindBranchNotFound, "branch not found: %s", branchID)
	}

	var parent *graph.Branch
	if branch.ParentID != "" {
		parent, _ = p.store.GetBranch(branch.ParentID)
	}

	raw := make([]float64, len(p.evaluators))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, evaluator := range p.evaluators {
		group.Go(func() error {
			score, err := evaluator.Evaluate(groupCtx, branch, parent, goal)
			if err != nil {
				return errors.Newf(errors.KindEvaluation, "dimension %s failed: %v", evaluator.Dimension(), err).
					With("branchId", branchID)
			}
			raw[i] = score
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, errors.Normalize(err)
	}

	scores := make(map[Dimension]float64, len(p.evaluators))
	overall := 0.0
	for i, evaluator := range p.evaluators {
		d := evaluator.Dimension()
		scores[d] = raw[i]

		weighted := raw[i]
		switch d {
		case Contradiction, Redundancy:
			weighted = 1 - weighted
		case ConfidenceGradient:
			weighted = (weighted + 1) / 2
		}
		overall += p.cfg.Weights.of(d) * weighted
	}

	quality := qualityBucket(p.cfg, overall)
	issues := deriveIssues(p.cfg, scores, goal)

	result := Result{
		BranchID:     branchID,
		Goal:         goal,
		Scores:       scores,
		OverallScore: overall,
		Quality:      quality,
		Issues:       issues,
		Suggestions:  deriveSuggestions(p.cfg, quality, overall, issues),
		EvaluatedAt:  time.Now().UTC(),
		EventIndex:   p.store.LastEventIndex(),
	}

	p.mu.Lock()
	p.latest[branchID] = result
	p.mu.Unlock()

	log.Debug("branch evaluated",
		"branch", branchID, "overall", overall, "quality", quality, "issues", len(issues))
	return result, nil
}

// Reset drops all cached evaluation results, e.g. after an import replaced
// the graph wholesale.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = make(map[string]Result)
}

// Latest returns the most recent evaluation of a branch, if any.
func (p *Pipeline) Latest(branchID string) (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.latest[branchID]
	return r, ok
}

/*
DecideTransition maps an evaluation onto the branch lifecycle: below the
dead-end threshold the branch dead-ends; above the completion threshold with
goal alignment above its own floor the branch completes; otherwise the
explicit answer is "no transition", which is not an error.
*/
func (p *Pipeline) DecideTransition(result Result) (graph.BranchState, bool) {
	if result.OverallScore < p.cfg.DeadEndThreshold {
		return graph.StateDeadEnd, true
	}
	if result.OverallScore > p.cfg.CompletionThreshold &&
		result.Scores[GoalAlignment] > p.cfg.CompletionGoalAlignment {
		return graph.StateCompleted, true
	}
	return "", false
}

// PruneReport summarizes one bulk pruning pass.
type PruneReport struct {
	Threshold float64  `json:"threshold"`
	Removed   []string `json:"removed"`
	Kept      int      `json:"kept"`
}

/*
Prune removes every branch whose latest evaluation score falls below the
threshold, evaluating branches that have never been scored. The pass is
irreversible and has no partial-failure semantics: scoring has no side
effects to roll back, so the first fatal error simply aborts the sweep.
*/
func (p *Pipeline) Prune(ctx context.Context, threshold float64) (PruneReport, error) {
	if threshold < 0 || threshold > 1 {
		return PruneReport{}, errors.Newf(errors.KindValidation, "prune threshold must be in [0,1], got %v", threshold)
	}

	report := PruneReport{Threshold: threshold}
	for _, branch := range p.store.GetAllBranches() {
		result, ok := p.Latest(branch.ID)
		if !ok {
			var err error
			result, err = p.EvaluateBranch(ctx, branch.ID, "")
			if err != nil {
				return PruneReport{}, err
			}
		}

		if result.OverallScore < threshold {
			p.store.RemoveBranch(branch.ID)
			p.mu.Lock()
			delete(p.latest, branch.ID)
			p.mu.Unlock()
			report.Removed = append(report.Removed, branch.ID)
			continue
		}
		report.Kept++
	}

	log.Info("pruning pass finished",
		"threshold", threshold, "removed", len(report.Removed), "kept", report.Kept)
	return report, nil
}
