// Package policy is the single source of truth for score thresholds and risk
// bands. Both the orchestrator's phase gating and the workflow selection read
// from here so the two can never drift apart.
package policy

import "github.com/sells-group/revenue-sentinel/internal/model"

// Score thresholds. Both comparisons are strict: a score of exactly
// AtRiskThreshold or ExpansionThreshold resolves to the monitoring path.
const (
	AtRiskThreshold    = 40
	ExpansionThreshold = 85
)

// NeedsSimilarity reports whether the similarity-retrieval phase runs.
// It is the same gate that selects the at-risk workflow.
func NeedsSimilarity(score int) bool {
	return score < AtRiskThreshold
}

// SelectWorkflow maps a score to the workflow path for phase 4.
func SelectWorkflow(score int) model.ReportType {
	switch {
	case score < AtRiskThreshold:
		return model.ReportAtRisk
	case score > ExpansionThreshold:
		return model.ReportExpansion
	default:
		return model.ReportMonitoring
	}
}

type band struct {
	max   int // exclusive upper bound
	level model.RiskLevel
	label string
}

// Bands are checked in order; the last entry catches everything at or above
// the expansion threshold.
var bands = []band{
	{20, model.RiskCritical, "Immediate action required"},
	{40, model.RiskHigh, "At-risk — churn likely within 30 days"},
	{60, model.RiskMedium, "Recovering — monitor closely"},
	{85, model.RiskLow, "Healthy — routine engagement"},
	{101, model.RiskExpansion, "Expansion opportunity detected"},
}

// Classify returns the risk band and its fixed label for a clamped score.
func Classify(score int) (model.RiskLevel, string) {
	for _, b := range bands {
		if score < b.max {
			return b.level, b.label
		}
	}
	last := bands[len(bands)-1]
	return last.level, last.label
}
