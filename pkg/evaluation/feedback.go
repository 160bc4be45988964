package evaluation

import "strings"

// Issue texts are stable identifiers: suggestions are a deterministic lookup
// from issue to remediation, so the wording here is part of the contract.
const (
	IssueLowCoherence       = "low coherence between consecutive thoughts"
	IssueContradictions     = "contradictory statements detected in branch"
	IssueMildRedundancy     = "mild redundancy: some thoughts restate earlier points"
	IssueHighRedundancy     = "high redundancy: recent thoughts add little new phrasing"
	IssueSevereRedundancy   = "severe redundancy: thoughts are direct repetitions"
	IssueLowInformationGain = "low information gain across recent thoughts"
	IssuePoorGoalAlignment  = "branch is drifting away from the stated goal"
)

func qualityBucket(cfg Config, overall float64) string {
	switch {
	case overall >= cfg.QualityExcellent:
		return "excellent"
	case overall >= cfg.QualityGood:
		return "good"
	case overall >= cfg.QualityModerate:
		return "moderate"
	default:
		return "poor"
	}
}

// deriveIssues inspects the raw dimension scores against their configured
// thresholds. Redundancy escalates through three messages as it worsens.
func deriveIssues(cfg Config, scores map[Dimension]float64, goal string) []string {
	var issues []string

	if scores[Coherence] < cfg.IssueLowCoherence {
		issues = append(issues, IssueLowCoherence)
	}
	if scores[Contradiction] > cfg.IssueHighContradiction {
		issues = append(issues, IssueContradictions)
	}

	redundancy := scores[Redundancy]
	switch {
	case redundancy > cfg.IssueRedundancy+0.4:
		issues = append(issues, IssueSevereRedundancy)
	case redundancy > cfg.IssueRedundancy+0.2:
		issues = append(issues, IssueHighRedundancy)
	case redundancy > cfg.IssueRedundancy:
		issues = append(issues, IssueMildRedundancy)
	}

	if scores[InformationGain] < cfg.IssueLowInformationGain {
		issues = append(issues, IssueLowInformationGain)
	}
	if strings.TrimSpace(goal) != "" && scores[GoalAlignment] < cfg.IssuePoorGoalAlignment {
		issues = append(issues, IssuePoorGoalAlignment)
	}

	return issues
}

func suggestionFor(issue string) string {
	switch issue {
	case IssueLowCoherence:
		return "connect each new thought explicitly to the previous one before moving on"
	case IssueContradictions:
		return "resolve the conflicting statements or split them into competing branches"
	case IssueMildRedundancy:
		return "check earlier thoughts before restating a point"
	case IssueHighRedundancy:
		return "summarize the repeated material once and build on it instead"
	case IssueSevereRedundancy:
		return "stop repeating: introduce a new angle or suspend this branch"
	case IssueLowInformationGain:
		return "bring in new evidence or examples rather than rephrasing"
	case IssuePoorGoalAlignment:
		return "re-read the goal and steer the next thoughts back toward it"
	}
	return ""
}

// deriveSuggestions maps issues to remediations, adds a pivot suggestion
// when the overall score falls under the pivot threshold, and encouragement
// at the top two quality buckets.
func deriveSuggestions(cfg Config, quality string, overall float64, issues []string) []string {
	var suggestions []string
	for _, issue := range issues {
		if s := suggestionFor(issue); s != "" {
			suggestions = append(suggestions, s)
		}
	}

	if overall < cfg.PivotThreshold {
		suggestions = append(suggestions, "overall quality is low: consider pivoting to a different approach or branch")
	}
	if quality == "excellent" || quality == "good" {
		suggestions = append(suggestions, "this line of reasoning is working: keep developing it")
	}

	return suggestions
}
