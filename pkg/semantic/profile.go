package semantic

import (
	"context"
	"time"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/graph"
)

const profileKeywordLimit = 8

// MergeSuggestion proposes folding two branches whose semantic profiles sit
// above the similarity floor.
type MergeSuggestion struct {
	BranchA        string   `json:"branchA"`
	BranchB        string   `json:"branchB"`
	Similarity     float64  `json:"similarity"`
	SharedKeywords []string `json:"sharedKeywords"`
}

// DriftReport describes how far a branch's recent thoughts have moved from
// its overall semantic center.
type DriftReport struct {
	BranchID string  `json:"branchId"`
	Drift    float64 `json:"drift"`
	Drifting bool    `json:"drifting"`
}

const driftThreshold = 0.3

/*
UpdateProfile folds one new thought into the branch's running centroid. The
center is the count-weighted mean of all thought embeddings seen so far, so
the update is O(dimensions) regardless of branch length. Keywords are
recomputed from the branch's cached thoughts.
*/
func (n *Navigator) UpdateProfile(ctx context.Context, b *graph.Branch, t graph.Thought) error {
	vec, err := n.EmbeddingFor(ctx, t)
	if err != nil {
		return err
	}

	if b.Profile == nil || b.Profile.ThoughtCount == 0 {
		center := make([]float32, len(vec))
		copy(center, vec)
		b.Profile = &graph.SemanticProfile{
			CenterEmbedding: center,
			ThoughtCount:    1,
		}
	} else {
		if len(b.Profile.CenterEmbedding) != len(vec) {
			return errors.Newf(errors.KindSemanticAnalysis,
				"profile dimension mismatch for branch %s: %d vs %d",
				b.ID, len(b.Profile.CenterEmbedding), len(vec))
		}
		count := float64(b.Profile.ThoughtCount)
		for i := range b.Profile.CenterEmbedding {
			b.Profile.CenterEmbedding[i] = float32(
				(float64(b.Profile.CenterEmbedding[i])*count + float64(vec[i])) / (count + 1))
		}
		b.Profile.ThoughtCount++
	}

	contents := make([]string, 0, len(b.Thoughts))
	for _, thought := range b.Thoughts {
		contents = append(contents, thought.Content)
	}
	b.Profile.Keywords = TopKeywords(contents, profileKeywordLimit)
	b.Profile.LastUpdated = time.Now().UTC()
	return nil
}

// CompareProfiles returns the cosine similarity of two branches' centers.
// Branches without a profile cannot be compared.
func (n *Navigator) CompareProfiles(a, b *graph.Branch) (float64, error) {
	if a.Profile == nil || b.Profile == nil {
		return 0, errors.New(errors.KindSemanticAnalysis, "both branches need a semantic profile to compare")
	}
	return CosineSimilarity(a.Profile.CenterEmbedding, b.Profile.CenterEmbedding)
}

/*
SuggestMerges compares every pair of active branches by profile center and
proposes merging pairs at or above minSimilarity. Branches without profiles
are skipped; the comparison cost is O(branch-count squared), never
O(thought-count).
*/
func (n *Navigator) SuggestMerges(minSimilarity float64) ([]MergeSuggestion, error) {
	if minSimilarity < -1 || minSimilarity > 1 {
		return nil, errors.Newf(errors.KindValidation, "minSimilarity must be in [-1,1], got %v", minSimilarity)
	}

	active := n.store.FindBranchesByState(graph.StateActive)
	var suggestions []MergeSuggestion

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if a.Profile == nil || b.Profile == nil {
				continue
			}
			sim, err := CosineSimilarity(a.Profile.CenterEmbedding, b.Profile.CenterEmbedding)
			if err != nil {
				return nil, err
			}
			if sim < minSimilarity {
				continue
			}
			suggestions = append(suggestions, MergeSuggestion{
				BranchA:        a.ID,
				BranchB:        b.ID,
				Similarity:     sim,
				SharedKeywords: intersect(a.Profile.Keywords, b.Profile.Keywords),
			})
		}
	}
	return suggestions, nil
}

/*
DetectDrift compares the centroid of a branch's most recent window of
thoughts against its overall profile center. A drift of 0 means the branch is
still circling its original topic; values above the threshold flag it as
drifting.
*/
func (n *Navigator) DetectDrift(ctx context.Context, branchID string, window int) (*DriftReport, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.KindValidation, "window must be positive, got %d", window)
	}
	b, ok := n.store.GetBranch(branchID)
	if !ok {
		return nil, errors.Newf(errors.KindBranchNotFound, "branch not found: %s", branchID)
	}
	if b.Profile == nil {
		return nil, errors.Newf(errors.KindSemanticAnalysis, "branch %s has no semantic profile", branchID)
	}

	recent := n.store.GetRecentThoughts(branchID, window)
	if len(recent) == 0 {
		return &DriftReport{BranchID: branchID}, nil
	}

	var recentCenter []float32
	for i, t := range recent {
		vec, err := n.EmbeddingFor(ctx, t)
		if err != nil {
			return nil, err
		}
		if recentCenter == nil {
			recentCenter = make([]float32, len(vec))
		}
		if len(vec) != len(recentCenter) {
			return nil, errors.New(errors.KindSemanticAnalysis, "embedding dimension changed mid-branch")
		}
		for j := range vec {
			recentCenter[j] = (recentCenter[j]*float32(i) + vec[j]) / float32(i+1)
		}
	}

	sim, err := CosineSimilarity(b.Profile.CenterEmbedding, recentCenter)
	if err != nil {
		return nil, err
	}

	drift := 1 - sim
	return &DriftReport{
		BranchID: branchID,
		Drift:    drift,
		Drifting: drift > driftThreshold,
	}, nil
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, w := range a {
		set[w] = true
	}
	var out []string
	for _, w := range b {
		if set[w] {
			out = append(out, w)
		}
	}
	return out
}
