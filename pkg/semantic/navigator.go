package semantic

import (
	"context"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
)

// Match pairs a thought id with its similarity to some reference.
type Match struct {
	ThoughtID  string  `json:"thoughtId"`
	Similarity float64 `json:"similarity"`
}

// PathStep is one hop of a semantic path.
type PathStep struct {
	ThoughtID  string  `json:"thoughtId"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

/*
Path is the result of a greedy semantic walk. The walk may stop before the
target is reached; Reached distinguishes success from partial exploration,
and TotalDistance accumulates (1 - similarity) over the steps taken.
*/
type Path struct {
	From          string     `json:"from"`
	To            string     `json:"to"`
	Steps         []PathStep `json:"steps"`
	TotalDistance float64    `json:"totalDistance"`
	Reached       bool       `json:"reached"`
}

/*
Navigator ranks and paths over thoughts using cached embeddings. It owns the
cache lookup discipline but not the embedding model; the Embedder is injected
at construction time.
*/
type Navigator struct {
	store    *graph.Store
	embedder Embedder
	cache    *Cache
}

func NewNavigator(store *graph.Store, embedder Embedder, cacheSize int) *Navigator {
	return &Navigator{
		store:    store,
		embedder: embedder,
		cache:    NewCache(cacheSize),
	}
}

// CacheLen exposes the embedding cache size for statistics.
func (n *Navigator) CacheLen() int {
	return n.cache.Len()
}

// EmbeddingFor returns the cached embedding for a thought, computing and
// caching it on a miss.
func (n *Navigator) EmbeddingFor(ctx context.Context, t graph.Thought) ([]float32, error) {
	if vec, ok := n.cache.Get(t.ID); ok {
		return vec, nil
	}
	vec, err := n.embedder.Embed(ctx, t.Content)
	if err != nil {
		return nil, errors.Normalize(err)
	}
	n.cache.Put(t.ID, vec)
	return vec, nil
}

/*
FindMostSimilar scans candidateIDs once, skipping excluded and unknown ids,
and keeps the running maximum by cosine similarity against the target
thought. Ties keep the first-seen candidate, so the result is deterministic
under the caller's iteration order. Returns nil when no candidate is
eligible.
*/
func (n *Navigator) FindMostSimilar(ctx context.Context, targetID string, candidateIDs []string, exclude map[string]bool) (*Match, error) {
	target, ok := n.store.GetThought(targetID)
	if !ok {
		return nil, errors.Newf(errors.KindThoughtNotFound, "thought not found: %s", targetID)
	}
	targetVec, err := n.EmbeddingFor(ctx, target)
	if err != nil {
		return nil, err
	}

	var best *Match
	for _, id := range candidateIDs {
		if id == targetID || exclude[id] {
			continue
		}
		candidate, ok := n.store.GetThought(id)
		if !ok {
			continue
		}
		vec, err := n.EmbeddingFor(ctx, candidate)
		if err != nil {
			return nil, err
		}
		sim, err := CosineSimilarity(targetVec, vec)
		if err != nil {
			return nil, err
		}
		if best == nil || sim > best.Similarity {
			best = &Match{ThoughtID: id, Similarity: sim}
		}
	}
	return best, nil
}

// FindSimilar embeds the query and returns the top limit thoughts ranked by
// similarity, scanning the pool in ascending id order.
func (n *Navigator) FindSimilar(ctx context.Context, query string, limit int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.KindValidation, "query must not be blank")
	}
	if limit <= 0 {
		return nil, errors.Newf(errors.KindValidation, "limit must be positive, got %d", limit)
	}

	queryVec, err := n.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Normalize(err)
	}

	var matches []Match
	for _, t := range n.store.AllThoughts() {
		vec, err := n.EmbeddingFor(ctx, t)
		if err != nil {
			return nil, err
		}
		sim, err := CosineSimilarity(queryVec, vec)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{ThoughtID: t.ID, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

/*
FindSemanticPath walks greedily from one thought toward another. At every
step the walk moves to the most similar not-yet-visited thought among ALL
thoughts; similarity, not graph adjacency, defines reachability. Candidates
are iterated in ascending id order so ties resolve to the lowest id.

The walk stops when the target is reached, maxSteps is exhausted, or no
unvisited candidate remains, so the result may be a partial path. There is no
backtracking; this is a documented approximation, not a shortest-path
guarantee.
*/
func (n *Navigator) FindSemanticPath(ctx context.Context, fromID, toID string, maxSteps int) (*Path, error) {
	if maxSteps <= 0 {
		return nil, errors.Newf(errors.KindValidation, "maxSteps must be positive, got %d", maxSteps)
	}
	if _, ok := n.store.GetThought(fromID); !ok {
		return nil, errors.Newf(errors.KindThoughtNotFound, "thought not found: %s", fromID)
	}
	if _, ok := n.store.GetThought(toID); !ok {
		return nil, errors.Newf(errors.KindThoughtNotFound, "thought not found: %s", toID)
	}

	path := &Path{From: fromID, To: toID}
	if fromID == toID {
		path.Reached = true
		return path, nil
	}

	all := n.store.AllThoughts()
	candidateIDs := make([]string, 0, len(all))
	for _, t := range all {
		candidateIDs = append(candidateIDs, t.ID)
	}

	visited := map[string]bool{fromID: true}
	current := fromID

	for step := 0; step < maxSteps; step++ {
		next, err := n.FindMostSimilar(ctx, current, candidateIDs, visited)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}

		path.TotalDistance += 1 - next.Similarity
		path.Steps = append(path.Steps, PathStep{
			ThoughtID:  next.ThoughtID,
			Similarity: next.Similarity,
			Distance:   path.TotalDistance,
		})
		visited[next.ThoughtID] = true
		current = next.ThoughtID

		if current == toID {
			path.Reached = true
			break
		}
	}

	log.Debug("semantic path finished",
		"from", fromID, "to", toID,
		"steps", len(path.Steps), "reached", path.Reached)
	return path, nil
}
