package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

func TestClassify_Bands(t *testing.T) {
	cases := []struct {
		score int
		level model.RiskLevel
	}{
		{0, model.RiskCritical},
		{19, model.RiskCritical},
		{20, model.RiskHigh},
		{39, model.RiskHigh},
		{40, model.RiskMedium},
		{59, model.RiskMedium},
		{60, model.RiskLow},
		{84, model.RiskLow},
		{85, model.RiskExpansion},
		{100, model.RiskExpansion},
	}
	for _, c := range cases {
		level, label := Classify(c.score)
		assert.Equal(t, c.level, level, "score %d", c.score)
		assert.NotEmpty(t, label)
	}
}

func TestSelectWorkflow_StrictBoundaries(t *testing.T) {
	assert.Equal(t, model.ReportAtRisk, SelectWorkflow(39))
	assert.Equal(t, model.ReportMonitoring, SelectWorkflow(40))
	assert.Equal(t, model.ReportMonitoring, SelectWorkflow(85))
	assert.Equal(t, model.ReportExpansion, SelectWorkflow(86))
}

func TestNeedsSimilarity_MatchesAtRiskGate(t *testing.T) {
	for score := 0; score <= 100; score++ {
		assert.Equal(t, SelectWorkflow(score) == model.ReportAtRisk, NeedsSimilarity(score), "score %d", score)
	}
}
