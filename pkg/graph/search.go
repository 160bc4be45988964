package graph

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dendrite-ai/dendrite/pkg/errors"
)

/*
BreadthFirstSearch explores the parent-to-child branch tree outward from
startID, visiting each branch at most once and never expanding past maxDepth.
The returned slice is in visit order and always includes the start branch at
depth 0. Used to scope merge-suggestion and contradiction-search windows to a
bounded neighborhood.
*/
func (s *Store) BreadthFirstSearch(startID string, maxDepth int) ([]string, error) {
	if strings.TrimSpace(startID) == "" {
		return nil, errors.New(errors.KindValidation, "start branch id must not be blank")
	}
	if maxDepth < 0 {
		return nil, errors.Newf(errors.KindValidation, "maxDepth must not be negative, got %d", maxDepth)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start, ok := s.branches[startID]
	if !ok {
		return nil, errors.Newf(errors.KindBranchNotFound, "branch not found: %s", startID)
	}

	type frontier struct {
		branch *Branch
		depth  int
	}

	visited := map[string]bool{startID: true}
	order := []string{startID}
	queue := []frontier{{start, 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}
		for _, childID := range current.branch.ChildIDs {
			if visited[childID] {
				continue
			}
			child, ok := s.branches[childID]
			if !ok {
				continue
			}
			visited[childID] = true
			order = append(order, childID)
			queue = append(queue, frontier{child, current.depth + 1})
		}
	}

	return order, nil
}

/*
SearchThoughts scans every branch's thoughts, testing pattern against the
content as a regular expression. An invalid pattern is a validation error; a
thought that fails to match is simply skipped, never fatal to the scan.
*/
func (s *Store) SearchThoughts(pattern string) ([]Thought, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Newf(errors.KindValidation, "invalid search pattern: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Thought
	for _, id := range s.order {
		b, ok := s.branches[id]
		if !ok {
			continue
		}
		for _, t := range b.Thoughts {
			if re.MatchString(t.Content) {
				matches = append(matches, t)
			}
		}
	}

	log.Debug("thought search finished", "pattern", pattern, "matches", len(matches))
	return matches, nil
}

// FindThoughtsByType filters every branch's thoughts by metadata type.
func (s *Store) FindThoughtsByType(thoughtType string) []Thought {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Thought
	for _, id := range s.order {
		for _, t := range s.branches[id].Thoughts {
			if t.Metadata.Type == thoughtType {
				out = append(out, t)
			}
		}
	}
	return out
}

// FindThoughtsByConfidence returns thoughts whose confidence lies in
// [min, max] inclusive.
func (s *Store) FindThoughtsByConfidence(min, max float64) []Thought {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Thought
	for _, id := range s.order {
		for _, t := range s.branches[id].Thoughts {
			if t.Metadata.Confidence >= min && t.Metadata.Confidence <= max {
				out = append(out, t)
			}
		}
	}
	return out
}

// FindBranchesByState returns branches currently in the given state.
func (s *Store) FindBranchesByState(state BranchState) []*Branch {
	var out []*Branch
	for _, b := range s.GetAllBranches() {
		if b.State == state {
			out = append(out, b)
		}
	}
	return out
}

// FindOrphanedBranches returns branches with neither a parent nor any
// recorded child.
func (s *Store) FindOrphanedBranches() []*Branch {
	var out []*Branch
	for _, b := range s.GetAllBranches() {
		if b.ParentID == "" && len(b.ChildIDs) == 0 {
			out = append(out, b)
		}
	}
	return out
}
