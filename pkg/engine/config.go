package engine

import (
	"github.com/spf13/viper"

	"github.com/dendrite-ai/dendrite/pkg/errors"
	"github.com/dendrite-ai/dendrite/pkg/evaluation"
)

// Config collects every recognized engine option.
type Config struct {
	Evaluation evaluation.Config

	AutoEvaluation  bool
	SparseThreshold int
	CacheSize       int

	MaxBranchDepth int
	ThoughtPoolCap int

	PruneDefaultThreshold float64
	ContentTruncate       int
	ExportBatchSize       int
	HTTPAddr              string
}

func Default() Config {
	return Config{
		Evaluation:            evaluation.DefaultConfig(),
		AutoEvaluation:        true,
		SparseThreshold:       3,
		CacheSize:             256,
		MaxBranchDepth:        10,
		ThoughtPoolCap:        10000,
		PruneDefaultThreshold: 0.3,
		ContentTruncate:       120,
		ExportBatchSize:       100,
		HTTPAddr:              ":3211",
	}
}

/*
FromViper reads the recognized options, falling back to defaults for unset
keys, and validates ranges. Any invalid value is a configuration error; the
engine refuses to start rather than running with silently-clamped settings.
*/
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Default()

	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setFloat := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	setInt("evaluation.window_size", &cfg.Evaluation.WindowSize)
	setInt("evaluation.cache_size", &cfg.CacheSize)
	setInt("evaluation.sparse_threshold", &cfg.SparseThreshold)
	if v.IsSet("evaluation.auto_enabled") {
		cfg.AutoEvaluation = v.GetBool("evaluation.auto_enabled")
	}
	setFloat("evaluation.pivot_threshold", &cfg.Evaluation.PivotThreshold)

	setFloat("evaluation.weights.coherence", &cfg.Evaluation.Weights.Coherence)
	setFloat("evaluation.weights.contradiction", &cfg.Evaluation.Weights.Contradiction)
	setFloat("evaluation.weights.information_gain", &cfg.Evaluation.Weights.InformationGain)
	setFloat("evaluation.weights.goal_alignment", &cfg.Evaluation.Weights.GoalAlignment)
	setFloat("evaluation.weights.confidence_gradient", &cfg.Evaluation.Weights.ConfidenceGradient)
	setFloat("evaluation.weights.redundancy", &cfg.Evaluation.Weights.Redundancy)

	setFloat("evaluation.quality.excellent", &cfg.Evaluation.QualityExcellent)
	setFloat("evaluation.quality.good", &cfg.Evaluation.QualityGood)
	setFloat("evaluation.quality.moderate", &cfg.Evaluation.QualityModerate)

	setFloat("evaluation.issue.low_coherence", &cfg.Evaluation.IssueLowCoherence)
	setFloat("evaluation.issue.high_contradiction", &cfg.Evaluation.IssueHighContradiction)
	setFloat("evaluation.issue.redundancy", &cfg.Evaluation.IssueRedundancy)
	setFloat("evaluation.issue.low_information_gain", &cfg.Evaluation.IssueLowInformationGain)
	setFloat("evaluation.issue.poor_goal_alignment", &cfg.Evaluation.IssuePoorGoalAlignment)

	setFloat("evaluation.completion_threshold", &cfg.Evaluation.CompletionThreshold)
	setFloat("evaluation.completion_goal_alignment", &cfg.Evaluation.CompletionGoalAlignment)
	setFloat("evaluation.dead_end_threshold", &cfg.Evaluation.DeadEndThreshold)

	setInt("graph.max_branch_depth", &cfg.MaxBranchDepth)
	setInt("graph.thought_pool_cap", &cfg.ThoughtPoolCap)
	setFloat("pruning.default_threshold", &cfg.PruneDefaultThreshold)
	setInt("display.content_truncate", &cfg.ContentTruncate)
	setInt("export.batch_size", &cfg.ExportBatchSize)
	if v.IsSet("server.http_addr") {
		cfg.HTTPAddr = v.GetString("server.http_addr")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every option range.
func (c Config) Validate() error {
	positives := map[string]int{
		"evaluation.window_size":      c.Evaluation.WindowSize,
		"evaluation.cache_size":       c.CacheSize,
		"evaluation.sparse_threshold": c.SparseThreshold,
		"graph.max_branch_depth":      c.MaxBranchDepth,
		"graph.thought_pool_cap":      c.ThoughtPoolCap,
		"display.content_truncate":    c.ContentTruncate,
		"export.batch_size":           c.ExportBatchSize,
	}
	for key, value := range positives {
		if value <= 0 {
			return errors.Newf(errors.KindConfiguration, "%s must be positive, got %d", key, value)
		}
	}

	unitRange := map[string]float64{
		"evaluation.pivot_threshold":            c.Evaluation.PivotThreshold,
		"evaluation.quality.excellent":          c.Evaluation.QualityExcellent,
		"evaluation.quality.good":               c.Evaluation.QualityGood,
		"evaluation.quality.moderate":           c.Evaluation.QualityModerate,
		"evaluation.issue.low_coherence":        c.Evaluation.IssueLowCoherence,
		"evaluation.issue.high_contradiction":   c.Evaluation.IssueHighContradiction,
		"evaluation.issue.redundancy":           c.Evaluation.IssueRedundancy,
		"evaluation.issue.low_information_gain": c.Evaluation.IssueLowInformationGain,
		"evaluation.issue.poor_goal_alignment":  c.Evaluation.IssuePoorGoalAlignment,
		"evaluation.completion_threshold":       c.Evaluation.CompletionThreshold,
		"evaluation.completion_goal_alignment":  c.Evaluation.CompletionGoalAlignment,
		"evaluation.dead_end_threshold":         c.Evaluation.DeadEndThreshold,
		"pruning.default_threshold":             c.PruneDefaultThreshold,
	}
	for key, value := range unitRange {
		if value < 0 || value > 1 {
			return errors.Newf(errors.KindConfiguration, "%s must be in [0,1], got %v", key, value)
		}
	}

	weights := []float64{
		c.Evaluation.Weights.Coherence,
		c.Evaluation.Weights.Contradiction,
		c.Evaluation.Weights.InformationGain,
		c.Evaluation.Weights.GoalAlignment,
		c.Evaluation.Weights.ConfidenceGradient,
		c.Evaluation.Weights.Redundancy,
	}
	for _, w := range weights {
		if w < 0 {
			return errors.Newf(errors.KindConfiguration, "evaluation weights must not be negative, got %v", w)
		}
	}

	return nil
}
