package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ThoughtMetadata carries the classification attached to a thought when it
// was recorded.
type ThoughtMetadata struct {
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	KeyPoints  []string `json:"keyPoints"`
}

/*
Thought is an immutable, content-addressed unit of reasoning text. Its ID is a
deterministic function of the content, so recording identical content twice
always resolves to the same thought and never duplicates the pool entry.
*/
type Thought struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	BranchID  string          `json:"branchId"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  ThoughtMetadata `json:"metadata"`
}

// ContentHash derives the thought id from its content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "th-" + hex.EncodeToString(sum[:8])
}

// BranchState is the lifecycle state of a branch.
type BranchState string

const (
	StateActive    BranchState = "active"
	StateSuspended BranchState = "suspended"
	StateCompleted BranchState = "completed"
	StateDeadEnd   BranchState = "dead_end"
)

/*
ValidTransition reports whether a branch may move from one state to another.
Transitions run one-directionally from active toward a terminal state, except
suspension, which is reversible.
*/
func ValidTransition(from, to BranchState) bool {
	if from == to {
		return false
	}
	switch from {
	case StateActive:
		return to == StateSuspended || to == StateCompleted || to == StateDeadEnd
	case StateSuspended:
		return to == StateActive || to == StateCompleted || to == StateDeadEnd
	default:
		// completed and dead_end are terminal
		return false
	}
}

// CrossRefType classifies a cross-reference between two branches.
type CrossRefType string

const (
	CrossRefComplementary CrossRefType = "complementary"
	CrossRefContradictory CrossRefType = "contradictory"
	CrossRefBuildsUpon    CrossRefType = "builds_upon"
	CrossRefAlternative   CrossRefType = "alternative"
)

// ValidCrossRefType reports whether t is one of the recognized kinds.
func ValidCrossRefType(t CrossRefType) bool {
	switch t {
	case CrossRefComplementary, CrossRefContradictory, CrossRefBuildsUpon, CrossRefAlternative:
		return true
	}
	return false
}

// CrossRef is a weighted, typed link from the owning branch to another.
type CrossRef struct {
	ToBranch  string       `json:"toBranch"`
	Type      CrossRefType `json:"type"`
	Reason    string       `json:"reason"`
	Strength  float64      `json:"strength"`
	CreatedAt time.Time    `json:"createdAt"`
}

/*
SemanticProfile is a running centroid of a branch's thought embeddings plus
its dominant keywords. It lets branch-vs-branch comparisons run in
O(branch-count) instead of rescanning every thought.
*/
type SemanticProfile struct {
	CenterEmbedding []float32 `json:"centerEmbedding"`
	Keywords        []string  `json:"keywords"`
	ThoughtCount    int       `json:"thoughtCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

/*
Branch is a mutable, ordered sequence of thoughts with lifecycle state.
ThoughtIDs is append-only and kept 1:1 with the Thoughts cache so reads are
O(1). ChildIDs and ParentID stay mutually consistent; all edge updates go
through the Store's Link/Unlink operations.
*/
type Branch struct {
	ID                  string           `json:"id"`
	ParentID            string           `json:"parentId,omitempty"`
	ChildIDs            []string         `json:"childIds"`
	State               BranchState      `json:"state"`
	Priority            float64          `json:"priority"`
	Confidence          float64          `json:"confidence"`
	ThoughtIDs          []string         `json:"thoughtIds"`
	CrossRefs           []CrossRef       `json:"crossRefs,omitempty"`
	LastEvaluationIndex int              `json:"lastEvaluationIndex"`
	Profile             *SemanticProfile `json:"semanticProfile,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`

	// Thoughts mirrors ThoughtIDs for O(1) read access. Rebuilt on import,
	// never serialized.
	Thoughts []Thought `json:"-"`
}

// EventType enumerates the append-only log record types.
type EventType string

const (
	EventThoughtAdded        EventType = "thought_added"
	EventBranchCreated       EventType = "branch_created"
	EventCrossRefAdded       EventType = "cross_ref_added"
	EventBranchStateChanged  EventType = "branch_state_changed"
	EventEvaluationCompleted EventType = "evaluation_completed"
)

/*
Event is one record of the replayable mutation log. Index is monotonic and
dense starting from 0; records are never mutated or removed.
*/
type Event struct {
	Index     int            `json:"index"`
	Type      EventType      `json:"type"`
	ThoughtID string         `json:"thoughtId,omitempty"`
	BranchID  string         `json:"branchId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
