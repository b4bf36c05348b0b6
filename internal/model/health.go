package model

// RiskLevel classifies a health score into a named band.
type RiskLevel string

const (
	RiskCritical  RiskLevel = "CRITICAL"
	RiskHigh      RiskLevel = "HIGH"
	RiskMedium    RiskLevel = "MEDIUM"
	RiskLow       RiskLevel = "LOW"
	RiskExpansion RiskLevel = "EXPANSION"
)

// ScoreBreakdownEntry records one scoring rule that fired. Entries are kept in
// rule evaluation order, not sorted by magnitude.
type ScoreBreakdownEntry struct {
	Factor       string   `json:"factor"`
	Delta        int      `json:"delta"`
	Detail       string   `json:"detail"`
	ReferenceID  string   `json:"reference_id,omitempty"`  // single citation (usage record)
	ReferenceIDs []string `json:"reference_ids,omitempty"` // multi-citation (ticket ids)
}

// HealthAssessment is the scoring engine's output for one pipeline run.
// It is derived state: recomputed every run, never persisted.
type HealthAssessment struct {
	Score           int                   `json:"score"` // clamped to [0,100]
	RiskLevel       RiskLevel             `json:"risk_level"`
	RiskLabel       string                `json:"risk_label"`
	Breakdown       []ScoreBreakdownEntry `json:"breakdown"`
	TierUtilization float64               `json:"tier_utilization"`
}
