package evaluation

import (
	"context"
	"time"

	"github.com/dendrite-ai/dendrite/pkg/graph"
)

// Dimension names one independent scoring axis.
type Dimension string

const (
	Coherence          Dimension = "coherence"
	Contradiction      Dimension = "contradiction"
	InformationGain    Dimension = "informationGain"
	GoalAlignment      Dimension = "goalAlignment"
	ConfidenceGradient Dimension = "confidenceGradient"
	Redundancy         Dimension = "redundancy"
)

/*
Evaluator is the uniform contract every dimension implements. Evaluators run
conceptually in parallel; no dimension may observe another's result. Raw
scores are in [0,1] except the confidence gradient, whose native range is
[-1,1] and is rescaled only at aggregation time.
*/
type Evaluator interface {
	Dimension() Dimension
	Evaluate(ctx context.Context, branch, parent *graph.Branch, goal string) (float64, error)
}

// Weights is the fixed vector applied when merging dimension scores. The
// weights are not forced to sum to 1, but a configuration that normalizes
// them keeps the overall score bounded in [0,1].
type Weights struct {
	Coherence          float64 `json:"coherence"`
	Contradiction      float64 `json:"contradiction"`
	InformationGain    float64 `json:"informationGain"`
	GoalAlignment      float64 `json:"goalAlignment"`
	ConfidenceGradient float64 `json:"confidenceGradient"`
	Redundancy         float64 `json:"redundancy"`
}

// DefaultWeights sum to 1.0.
func DefaultWeights() Weights {
	return Weights{
		Coherence:          0.25,
		Contradiction:      0.20,
		InformationGain:    0.15,
		GoalAlignment:      0.15,
		ConfidenceGradient: 0.10,
		Redundancy:         0.15,
	}
}

func (w Weights) of(d Dimension) float64 {
	switch d {
	case Coherence:
		return w.Coherence
	case Contradiction:
		return w.Contradiction
	case InformationGain:
		return w.InformationGain
	case GoalAlignment:
		return w.GoalAlignment
	case ConfidenceGradient:
		return w.ConfidenceGradient
	case Redundancy:
		return w.Redundancy
	}
	return 0
}

// Result is one completed evaluation of a branch.
type Result struct {
	BranchID     string                `json:"branchId"`
	Goal         string                `json:"goal,omitempty"`
	Scores       map[Dimension]float64 `json:"scores"`
	OverallScore float64               `json:"overallScore"`
	Quality      string                `json:"quality"`
	Issues       []string              `json:"issues"`
	Suggestions  []string              `json:"suggestions"`
	EvaluatedAt  time.Time             `json:"evaluatedAt"`
	EventIndex   int                   `json:"eventIndex"`
}

// Config collects every tunable of the pipeline.
type Config struct {
	Weights    Weights
	WindowSize int

	QualityExcellent float64
	QualityGood      float64
	QualityModerate  float64

	IssueLowCoherence       float64
	IssueHighContradiction  float64
	IssueRedundancy         float64
	IssueLowInformationGain float64
	IssuePoorGoalAlignment  float64

	CompletionThreshold     float64
	CompletionGoalAlignment float64
	DeadEndThreshold        float64
	PivotThreshold          float64
}

func DefaultConfig() Config {
	return Config{
		Weights:    DefaultWeights(),
		WindowSize: 10,

		QualityExcellent: 0.85,
		QualityGood:      0.7,
		QualityModerate:  0.5,

		IssueLowCoherence:       0.5,
		IssueHighContradiction:  0.3,
		IssueRedundancy:         0.3,
		IssueLowInformationGain: 0.4,
		IssuePoorGoalAlignment:  0.4,

		CompletionThreshold:     0.75,
		CompletionGoalAlignment: 0.7,
		DeadEndThreshold:        0.25,
		PivotThreshold:          0.4,
	}
}
