package semantic

import (
	"math"
	"sort"
	"strings"

	"github.com/dendrite-ai/dendrite/pkg/errors"
)

// CosineSimilarity returns the cosine of the angle between two vectors, in
// [-1, 1]. Mismatched or empty vectors are a semantic analysis error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New(errors.KindSemanticAnalysis, "cannot compare empty vectors")
	}
	if len(a) != len(b) {
		return 0, errors.Newf(errors.KindSemanticAnalysis, "vector dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Tokenize lowercases text and splits it into word tokens, dropping anything
// shorter than two runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// LexicalSimilarity is the Jaccard similarity of the two texts' token sets.
func LexicalSimilarity(a, b string) float64 {
	setA := map[string]bool{}
	for _, w := range Tokenize(a) {
		setA[w] = true
	}
	setB := map[string]bool{}
	for _, w := range Tokenize(b) {
		setB[w] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// TopKeywords returns the most frequent tokens of length four or more across
// the given texts, capped at limit, ties broken alphabetically.
func TopKeywords(texts []string, limit int) []string {
	counts := map[string]int{}
	for _, text := range texts {
		for _, w := range Tokenize(text) {
			if len(w) >= 4 {
				counts[w]++
			}
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}
