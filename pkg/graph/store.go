package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/dendrite-ai/dendrite/pkg/errors"
)

// ThoughtSpec is the input for creating a thought.
type ThoughtSpec struct {
	Content    string
	BranchID   string
	Type       string
	Confidence float64
	KeyPoints  []string
}

/*
Store owns the thought pool, the branch table and the append-only event log.
It performs pure data operations only; search and scoring live elsewhere.

The engine serializes callers, but the store still locks internally so a tool
server that dispatches handlers concurrently cannot observe a torn
ThoughtIDs/Thoughts pair.
*/
type Store struct {
	mu       sync.RWMutex
	thoughts map[string]Thought
	branches map[string]*Branch
	order    []string
	events   []Event
	maxDepth int
}

func NewStore() *Store {
	return &Store{
		thoughts: make(map[string]Thought),
		branches: make(map[string]*Branch),
	}
}

// SetMaxDepth bounds the ancestor-chain length of any branch; zero or
// negative means unbounded. Import bypasses the bound so historical graphs
// reconstruct as-is.
func (s *Store) SetMaxDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = depth
}

// HasThought reports whether a thought with the given id exists in the pool.
func (s *Store) HasThought(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.thoughts[id]
	return ok
}

func (s *Store) GetThought(id string) (Thought, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thoughts[id]
	return t, ok
}

/*
CreateThoughtIfNew inserts a thought derived from spec unless the pool already
holds one with the same content hash. The second return value reports whether
an insert happened; re-adding identical content is a no-op that yields the
existing thought.
*/
func (s *Store) CreateThoughtIfNew(spec ThoughtSpec) (Thought, bool) {
	id := ContentHash(spec.Content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.thoughts[id]; ok {
		return existing, false
	}

	t := Thought{
		ID:        id,
		Content:   spec.Content,
		BranchID:  spec.BranchID,
		Timestamp: time.Now().UTC(),
		Metadata: ThoughtMetadata{
			Type:       spec.Type,
			Confidence: spec.Confidence,
			KeyPoints:  spec.KeyPoints,
		},
	}
	s.thoughts[id] = t
	return t, true
}

// InsertThought places a fully-formed thought into the pool, preserving its
// id and timestamp. Used by import to reconstruct state id-for-id.
func (s *Store) InsertThought(t Thought) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts[t.ID] = t
}

func (s *Store) HasBranch(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.branches[id]
	return ok
}

func (s *Store) GetBranch(id string) (*Branch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	return b, ok
}

/*
CreateBranch initializes a branch with default state (active, priority 0.5,
confidence 0.5) and optionally links it under a parent. The parent, when
given, must already exist.
*/
func (s *Store) CreateBranch(id, parentID string) (*Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.branches[id]; ok {
		return nil, errors.Newf(errors.KindValidation, "branch already exists: %s", id)
	}

	now := time.Now().UTC()
	b := &Branch{
		ID:         id,
		State:      StateActive,
		Priority:   0.5,
		Confidence: 0.5,
		// -1 means no event has been scored yet, so the branch's whole
		// log replays on the first evaluation pass.
		LastEvaluationIndex: -1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if parentID != "" {
		parent, ok := s.branches[parentID]
		if !ok {
			return nil, errors.Newf(errors.KindBranchNotFound, "parent branch not found: %s", parentID)
		}
		if s.maxDepth > 0 {
			if depth := s.depthLocked(parent) + 1; depth > s.maxDepth {
				return nil, errors.Newf(errors.KindValidation, "branch depth %d exceeds limit %d", depth, s.maxDepth).
					With("parentId", parentID)
			}
		}
		b.ParentID = parentID
		parent.ChildIDs = append(parent.ChildIDs, id)
		sort.Strings(parent.ChildIDs)
	}

	s.branches[id] = b
	s.order = append(s.order, id)
	return b, nil
}

// InsertBranch places a fully-formed branch into the table, rebuilding its
// thought cache from the pool. Used by import; emits nothing.
func (s *Store) InsertBranch(b *Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.Thoughts = make([]Thought, 0, len(b.ThoughtIDs))
	for _, tid := range b.ThoughtIDs {
		if t, ok := s.thoughts[tid]; ok {
			b.Thoughts = append(b.Thoughts, t)
		}
	}
	s.branches[b.ID] = b
	s.order = append(s.order, b.ID)
}

/*
Link attaches child under parent, keeping both sides of the edge consistent.
Linking a branch under one of its own descendants is rejected with a
circular_reference error carrying the offending path.
*/
func (s *Store) Link(parentID, childID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.branches[parentID]
	if !ok {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", parentID)
	}
	child, ok := s.branches[childID]
	if !ok {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", childID)
	}
	if child.ParentID != "" {
		return errors.Newf(errors.KindValidation, "branch %s already has parent %s", childID, child.ParentID)
	}

	// Walk the ancestor chain of the prospective parent; hitting the child
	// means the link would close a cycle.
	path := []string{childID}
	for cursor := parent; cursor != nil; {
		path = append(path, cursor.ID)
		if cursor.ID == childID {
			return errors.New(errors.KindCircularReference, "link would create a cycle").
				With("path", path)
		}
		if cursor.ParentID == "" {
			break
		}
		cursor = s.branches[cursor.ParentID]
	}

	// The child brings its whole subtree along, so the bound applies to
	// its deepest descendant.
	if s.maxDepth > 0 {
		if depth := s.depthLocked(parent) + 1 + s.heightLocked(child); depth > s.maxDepth {
			return errors.Newf(errors.KindValidation, "linking %s under %s reaches depth %d, limit %d",
				childID, parentID, depth, s.maxDepth)
		}
	}

	child.ParentID = parentID
	parent.ChildIDs = append(parent.ChildIDs, childID)
	sort.Strings(parent.ChildIDs)
	parent.UpdatedAt = time.Now().UTC()
	child.UpdatedAt = parent.UpdatedAt
	return nil
}

// depthLocked counts the ancestors of b; a root branch has depth 0.
func (s *Store) depthLocked(b *Branch) int {
	depth := 0
	for b.ParentID != "" {
		parent, ok := s.branches[b.ParentID]
		if !ok {
			break
		}
		depth++
		b = parent
	}
	return depth
}

// heightLocked measures the longest descendant chain below b.
func (s *Store) heightLocked(b *Branch) int {
	height := 0
	for _, id := range b.ChildIDs {
		child, ok := s.branches[id]
		if !ok {
			continue
		}
		if h := s.heightLocked(child) + 1; h > height {
			height = h
		}
	}
	return height
}

// Unlink detaches child from parent. Missing branches or a non-matching edge
// are silently ignored.
func (s *Store) Unlink(parentID, childID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlinkLocked(parentID, childID)
}

func (s *Store) unlinkLocked(parentID, childID string) {
	parent, ok := s.branches[parentID]
	if ok {
		kept := parent.ChildIDs[:0]
		for _, id := range parent.ChildIDs {
			if id != childID {
				kept = append(kept, id)
			}
		}
		parent.ChildIDs = kept
	}
	if child, ok := s.branches[childID]; ok && child.ParentID == parentID {
		child.ParentID = ""
	}
}

/*
AddThoughtToBranch appends an existing thought to an existing branch. When
either id is missing this is a silent no-op; callers that need a hard failure
must pre-validate. The append keeps ThoughtIDs and the Thoughts cache 1:1.
*/
func (s *Store) AddThoughtToBranch(thoughtID, branchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.thoughts[thoughtID]
	if !ok {
		return
	}
	b, ok := s.branches[branchID]
	if !ok {
		return
	}

	b.ThoughtIDs = append(b.ThoughtIDs, thoughtID)
	b.Thoughts = append(b.Thoughts, t)
	b.UpdatedAt = time.Now().UTC()
}

// SetBranchState applies a lifecycle transition after checking it is legal.
func (s *Store) SetBranchState(id string, to BranchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.branches[id]
	if !ok {
		return errors.Newf(errors.KindBranchNotFound, "branch not found: %s", id)
	}
	if !ValidTransition(b.State, to) {
		return errors.Newf(errors.KindValidation, "illegal state transition %s -> %s", b.State, to).
			With("branchId", id)
	}
	b.State = to
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// GetAllBranches returns branches in creation order.
func (s *Store) GetAllBranches() []*Branch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Branch, 0, len(s.order))
	for _, id := range s.order {
		if b, ok := s.branches[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// GetRecentThoughts returns the last n thoughts of a branch in append order.
func (s *Store) GetRecentThoughts(branchID string, n int) []Thought {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.branches[branchID]
	if !ok || n <= 0 {
		return nil
	}
	if n > len(b.Thoughts) {
		n = len(b.Thoughts)
	}
	out := make([]Thought, n)
	copy(out, b.Thoughts[len(b.Thoughts)-n:])
	return out
}

/*
RecordEvent appends a record to the event log and returns it with its
assigned index. The store never emits events on its own; every mutating
caller pairs its mutation with a RecordEvent so the log stays authoritative.
*/
func (s *Store) RecordEvent(eventType EventType, thoughtID, branchID string, data map[string]any) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Event{
		Index:     len(s.events),
		Type:      eventType,
		ThoughtID: thoughtID,
		BranchID:  branchID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	s.events = append(s.events, e)
	return e
}

// AppendEvent restores a historical event during import. The record must
// continue the dense index sequence.
func (s *Store) AppendEvent(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Index != len(s.events) {
		return errors.Newf(errors.KindValidation, "event index %d breaks dense sequence at %d", e.Index, len(s.events))
	}
	s.events = append(s.events, e)
	return nil
}

// GetEventsSince returns all events with an index strictly greater than the
// given cursor. Pass -1 for a full replay.
func (s *Store) GetEventsSince(index int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < -1 {
		index = -1
	}
	start := index + 1
	if start >= len(s.events) {
		return nil
	}
	out := make([]Event, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

/*
RemoveBranch deletes a branch and takes its thoughts out of iteration. Edges
to parent and children are cleared on both sides; already-materialized
references held by callers are unaffected, which is acceptable because
ownership is by id, not by live reference.
*/
func (s *Store) RemoveBranch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.branches[id]
	if !ok {
		return
	}

	if b.ParentID != "" {
		s.unlinkLocked(b.ParentID, id)
	}
	for _, childID := range append([]string(nil), b.ChildIDs...) {
		s.unlinkLocked(id, childID)
	}

	for _, tid := range b.ThoughtIDs {
		if t, ok := s.thoughts[tid]; ok && t.BranchID == id {
			delete(s.thoughts, tid)
		}
	}

	delete(s.branches, id)
	kept := s.order[:0]
	for _, oid := range s.order {
		if oid != id {
			kept = append(kept, oid)
		}
	}
	s.order = kept
}

// AllThoughts returns every pooled thought in ascending id order, giving
// consumers a fixed, deterministic iteration order.
func (s *Store) AllThoughts() []Thought {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.thoughts))
	for id := range s.thoughts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Thought, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.thoughts[id])
	}
	return out
}

func (s *Store) ThoughtCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.thoughts)
}

func (s *Store) BranchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.branches)
}

func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastEventIndex returns the index of the newest event, or -1 when the log
// is empty.
func (s *Store) LastEventIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events) - 1
}

// Clear drops all state. Used by import before reconstruction.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts = make(map[string]Thought)
	s.branches = make(map[string]*Branch)
	s.order = nil
	s.events = nil
}
