package engine

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/evaluation"
	"github.com/dendrite-ai/dendrite/pkg/export"
	"github.com/dendrite-ai/dendrite/pkg/graph"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
)

/*
Engine is the lifecycle controller: every mutation enters here, updates the
Store, appends its event, and optionally triggers an evaluation of the
affected branch. Reads are served by the Store, the Navigator and the
Pipeline, which the engine exposes to its callers.

Engine calls are serialized by one mutex. The design assumes a single caller
session, but the tool server may dispatch handlers concurrently, so the lock
guards the full mutation-plus-evaluation critical section.
*/
type Engine struct {
	cfg      Config
	store    *graph.Store
	nav      *semantic.Navigator
	pipeline *evaluation.Pipeline
	embedder semantic.Embedder

	mu           sync.Mutex
	activeBranch string
}

func New(cfg Config, embedder semantic.Embedder) *Engine {
	store := graph.NewStore()
	store.SetMaxDepth(cfg.MaxBranchDepth)
	nav := semantic.NewNavigator(store, embedder, cfg.CacheSize)
	return &Engine{
		cfg:      cfg,
		store:    store,
		nav:      nav,
		pipeline: evaluation.NewPipeline(store, nav, embedder, cfg.Evaluation),
		embedder: embedder,
	}
}

func (e *Engine) Config() Config                 { return e.cfg }
func (e *Engine) Store() *graph.Store            { return e.store }
func (e *Engine) Navigator() *semantic.Navigator { return e.nav }
func (e *Engine) Pipeline() *evaluation.Pipeline { return e.pipeline }

// AddThoughtRequest is the validated input for recording one thought.
type AddThoughtRequest struct {
	Content        string
	BranchID       string
	ParentBranchID string
	Type           string
	Confidence     float64
	KeyPoints      []string
}

// AddThoughtResult reports what the mutation did.
type AddThoughtResult struct {
	Thought       graph.Thought      `json:"thought"`
	BranchID      string             `json:"branchId"`
	CreatedBranch bool               `json:"createdBranch"`
	NewThought    bool               `json:"newThought"`
	Evaluation    *evaluation.Result `json:"evaluation,omitempty"`
}

/*
AddThought records one thought: the branch is created on first reference,
the thought is created if its content is new (identical content resolves to
the existing id), the append and its event are recorded, the branch profile
is updated, and auto-evaluation fires once enough events have accumulated
since the branch was last scored.
*/
func (e *Engine) AddThought(ctx context.Context, req AddThoughtRequest) (*AddThoughtResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New(errors.KindValidation, "thought content must not be blank")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, errors.Newf(errors.KindValidation, "confidence must be in [0,1], got %v", req.Confidence)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.ThoughtCount() >= e.cfg.ThoughtPoolCap {
		return nil, errors.Newf(errors.KindValidation, "thought pool cap reached (%d)", e.cfg.ThoughtPoolCap)
	}

	branchID := req.BranchID
	if branchID == "" {
		branchID = e.activeBranch
	}
	if branchID == "" {
		branchID = newBranchID()
	}

	createdBranch := false
	if !e.store.HasBranch(branchID) {
		if _, err := e.createBranchLocked(branchID, req.ParentBranchID); err != nil {
			return nil, errors.Normalize(err)
		}
		createdBranch = true
	}

	thought, isNew := e.store.CreateThoughtIfNew(graph.ThoughtSpec{
		Content:    req.Content,
		BranchID:   branchID,
		Type:       req.Type,
		Confidence: req.Confidence,
		KeyPoints:  req.KeyPoints,
	})

	e.store.AddThoughtToBranch(thought.ID, branchID)
	e.store.RecordEvent(graph.EventThoughtAdded, thought.ID, branchID, nil)

	branch, _ := e.store.GetBranch(branchID)
	if err := e.nav.UpdateProfile(ctx, branch, thought); err != nil {
		// Profile staleness is recoverable; the thought itself is already
		// safely stored.
		log.Warn("semantic profile update failed", "branch", branchID, "error", err)
	}

	if e.activeBranch == "" {
		e.activeBranch = branchID
	}

	result := &AddThoughtResult{
		Thought:       thought,
		BranchID:      branchID,
		CreatedBranch: createdBranch,
		NewThought:    isNew,
	}

	if e.cfg.AutoEvaluation && e.eventsSinceEvaluation(branch) >= e.cfg.SparseThreshold {
		evalResult, err := e.evaluateLocked(ctx, branchID, "")
		if err != nil {
			log.Warn("auto-evaluation failed", "branch", branchID, "error", err)
		} else {
			result.Evaluation = &evalResult
		}
	}

	return result, nil
}

// eventsSinceEvaluation counts the branch's own events past its evaluation
// cursor; the sparse threshold compares against this, not the global log.
func (e *Engine) eventsSinceEvaluation(b *graph.Branch) int {
	count := 0
	for _, event := range e.store.GetEventsSince(b.LastEvaluationIndex) {
		if event.BranchID == b.ID {
			count++
		}
	}
	return count
}

func newBranchID() string {
	return "branch-" + uuid.NewString()[:8]
}

// CreateBranch creates a branch explicitly, generating an id when none is
// given, and records the creation event.
func (e *Engine) CreateBranch(id, parentID string) (*graph.Branch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" {
		id = newBranchID()
	}
	b, err := e.createBranchLocked(id, parentID)
	if err != nil {
		return nil, errors.Normalize(err)
	}
	if e.activeBranch == "" {
		e.activeBranch = id
	}
	return b, nil
}

func (e *Engine) createBranchLocked(id, parentID string) (*graph.Branch, error) {
	b, err := e.store.CreateBranch(id, parentID)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	if parentID != "" {
		data["parentId"] = parentID
	}
	e.store.RecordEvent(graph.EventBranchCreated, "", id, data)
	return b, nil
}

// LinkBranches attaches child under parent, rejecting cycles.
func (e *Engine) LinkBranches(parentID, childID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Normalize(e.store.Link(parentID, childID))
}

/*
AddCrossRef records a typed, weighted reference from one branch to another
and appends the cross_ref_added event.
*/
func (e *Engine) AddCrossRef(fromID, toID string, refType graph.CrossRefType, reason string, strength float64) error {
	if !graph.ValidCrossRefType(refType) {
		return errors.Newf(errors.KindValidation, "unknown cross-reference type: %s", refType)
	}
	if strength < 0 || strength > 1 {
		return errors.Newf(errors.KindValidation, "strength must be in [0,1], got %v", strength)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	from, ok := e.store.GetBranch(fromID)
	if !ok {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", fromID)
	}
	if !e.store.HasBranch(toID) {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", toID)
	}

	from.CrossRefs = append(from.CrossRefs, graph.CrossRef{
		ToBranch:  toID,
		Type:      refType,
		Reason:    reason,
		Strength:  strength,
		CreatedAt: time.Now().UTC(),
	})
	e.store.RecordEvent(graph.EventCrossRefAdded, "", fromID, map[string]any{
		"toBranch": toID,
		"type":     string(refType),
		"strength": strength,
	})
	return nil
}

// FindStrongestPaths ranks a branch's cross-references by strength.
func (e *Engine) FindStrongestPaths(fromID string, limit int) ([]graph.CrossRef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from, ok := e.store.GetBranch(fromID)
	if !ok {
		return nil, errors.Newf(errors.KindBranchNotFound, "branch not found: %s", fromID)
	}

	refs := append([]graph.CrossRef(nil), from.CrossRefs...)
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Strength > refs[j].Strength
	})
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// Focus switches the active branch.
func (e *Engine) Focus(branchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.HasBranch(branchID) {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", branchID)
	}
	e.activeBranch = branchID
	return nil
}

func (e *Engine) ActiveBranch() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeBranch
}

// ThoughtSummary is a display-trimmed view of one thought.
type ThoughtSummary struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// History returns the thoughts of the given branch, or of the active branch
// when branchID is empty, with content truncated per display configuration.
// It holds the engine lock so a concurrent append cannot grow the thought
// cache mid-read.
func (e *Engine) History(branchID string) ([]ThoughtSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if branchID == "" {
		branchID = e.activeBranch
	}
	if branchID == "" {
		return nil, errors.New(errors.KindValidation, "no branch id given and no active branch set")
	}

	b, ok := e.store.GetBranch(branchID)
	if !ok {
		return nil, errors.Newf(errors.KindBranchNotFound, "branch not found: %s", branchID)
	}

	out := make([]ThoughtSummary, 0, len(b.Thoughts))
	for _, t := range b.Thoughts {
		out = append(out, ThoughtSummary{
			ID:         t.ID,
			Content:    truncate(t.Content, e.cfg.ContentTruncate),
			Type:       t.Metadata.Type,
			Confidence: t.Metadata.Confidence,
			Timestamp:  t.Timestamp,
		})
	}
	return out, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

/*
EvaluateBranch scores a branch through the pipeline, advances its evaluation
cursor, records the evaluation event and applies any lifecycle transition the
result calls for.
*/
func (e *Engine) EvaluateBranch(ctx context.Context, branchID, goal string) (evaluation.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked(ctx, branchID, goal)
}

func (e *Engine) evaluateLocked(ctx context.Context, branchID, goal string) (evaluation.Result, error) {
	result, err := e.pipeline.EvaluateBranch(ctx, branchID, goal)
	if err != nil {
		return evaluation.Result{}, errors.Normalize(err)
	}

	e.store.RecordEvent(graph.EventEvaluationCompleted, "", branchID, map[string]any{
		"overallScore": result.OverallScore,
		"quality":      result.Quality,
	})

	branch, _ := e.store.GetBranch(branchID)
	branch.LastEvaluationIndex = e.store.LastEventIndex()
	branch.Confidence = result.OverallScore

	if to, ok := e.pipeline.DecideTransition(result); ok {
		from := branch.State
		if err := e.store.SetBranchState(branchID, to); err == nil {
			e.store.RecordEvent(graph.EventBranchStateChanged, "", branchID, map[string]any{
				"from": string(from),
				"to":   string(to),
			})
			log.Info("branch state changed", "branch", branchID, "from", from, "to", to)
		}
	}

	return result, nil
}

// Prune removes every branch scoring below the threshold; pass a negative
// threshold to use the configured default.
func (e *Engine) Prune(ctx context.Context, threshold float64) (evaluation.PruneReport, error) {
	if threshold < 0 {
		threshold = e.cfg.PruneDefaultThreshold
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	report, err := e.pipeline.Prune(ctx, threshold)
	if err != nil {
		return evaluation.PruneReport{}, errors.Normalize(err)
	}
	if e.activeBranch != "" && !e.store.HasBranch(e.activeBranch) {
		e.activeBranch = ""
	}
	return report, nil
}

// BranchStats is one row of the engine's branch summary.
type BranchStats struct {
	ID           string            `json:"id"`
	State        graph.BranchState `json:"state"`
	Priority     float64           `json:"priority"`
	Confidence   float64           `json:"confidence"`
	ThoughtCount int               `json:"thoughtCount"`
	Score        *float64          `json:"score,omitempty"`
}

// Stats is the engine-wide summary served to clients.
type Stats struct {
	ThoughtCount int           `json:"thoughtCount"`
	BranchCount  int           `json:"branchCount"`
	EventCount   int           `json:"eventCount"`
	CacheSize    int           `json:"cacheSize"`
	ActiveBranch string        `json:"activeBranch,omitempty"`
	Branches     []BranchStats `json:"branches"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		ThoughtCount: e.store.ThoughtCount(),
		BranchCount:  e.store.BranchCount(),
		EventCount:   e.store.EventCount(),
		CacheSize:    e.nav.CacheLen(),
		ActiveBranch: e.activeBranch,
	}
	for _, b := range e.store.GetAllBranches() {
		row := BranchStats{
			ID:           b.ID,
			State:        b.State,
			Priority:     b.Priority,
			Confidence:   b.Confidence,
			ThoughtCount: len(b.ThoughtIDs),
		}
		if result, ok := e.pipeline.Latest(b.ID); ok {
			score := result.OverallScore
			row.Score = &score
		}
		stats.Branches = append(stats.Branches, row)
	}
	return stats
}

// Export streams the graph as chunked JSONL.
func (e *Engine) Export(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Normalize(export.NewExporter(e.store, e.cfg.ExportBatchSize).WriteTo(w))
}

// Import clears the store and reconstructs it id-for-id from an export
// stream; re-exporting immediately afterwards yields the same graph.
func (e *Engine) Import(r io.Reader) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := export.NewImporter(e.store).ReadFrom(r); err != nil {
		return errors.Normalize(err)
	}
	e.pipeline.Reset()
	e.activeBranch = ""
	return nil
}
