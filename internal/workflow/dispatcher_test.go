package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/similarity"
	"github.com/sells-group/revenue-sentinel/pkg/crm"
	"github.com/sells-group/revenue-sentinel/pkg/notify"
	"github.com/sells-group/revenue-sentinel/pkg/tracker"
)

var testNow = time.Date(2026, 2, 26, 15, 46, 0, 0, time.UTC)

func testDispatcher() *Dispatcher {
	clock := func() time.Time { return testNow }
	return New(
		tracker.NewMock("https://tracker.example.com", "CSRE",
			tracker.WithClock(clock), tracker.WithIssueNumber(func() int { return 4821 })),
		notify.NewMock(notify.WithClock(clock)),
		crm.NewMock(crm.WithClock(clock), crm.WithIDSource(func() string { return "OPP-A1B2C3D4" })),
		WithClock(clock),
		WithIncidentID(func() string { return "INC-11223344" }),
	)
}

func enterpriseCustomer() model.Customer {
	return model.Customer{
		ID:             "CUST-001",
		Name:           "Acme Robotics",
		Tier:           model.TierEnterprise,
		TierLimit:      500000,
		AccountManager: "Sarah Chen",
		ManagerHandle:  "@sarah.chen",
		SalesRep:       "Mike Torres",
	}
}

func TestAtRisk_CriticalPriorityBelowTwenty(t *testing.T) {
	d := testDispatcher()
	hs := model.HealthAssessment{Score: 5, RiskLevel: model.RiskCritical, Breakdown: []model.ScoreBreakdownEntry{
		{Factor: "API Call Decline", Delta: -30, Detail: "88% drop over 7 days"},
		{Factor: "High 5xx Error Rate", Delta: -20, Detail: "18.3% on latest day"},
	}}
	matches := []similarity.Match{
		{Remedy: model.RemedyRecord{ID: "REM-2025-0442", Resolution: "Rolled back gateway config and reset auth cache"}, Score: 0.99},
		{Remedy: model.RemedyRecord{ID: "REM-2025-0391", Resolution: "Replayed dead-lettered webhook deliveries"}, Score: 0.92},
		{Remedy: model.RemedyRecord{ID: "REM-2024-1204", Resolution: "Assigned dedicated CSM"}, Score: 0.81},
	}

	result, err := d.AtRisk(context.Background(), enterpriseCustomer(), hs, matches)
	require.NoError(t, err)

	assert.Equal(t, "at_risk_workflow", result.Workflow)
	assert.Equal(t, "INC-11223344", result.IncidentID)
	assert.Equal(t, "CSRE-4821", result.TicketID)
	assert.Equal(t, "#cs-alerts-enterprise", result.NotifyChannel)
	assert.Equal(t, "@sarah.chen", result.NotifyTarget)
	assert.Equal(t, 120000, result.EstimatedARRAtRisk)
	assert.Equal(t, testNow, result.TriggeredAt)
	require.Len(t, result.NextSteps, 4)
	assert.Contains(t, result.NextSteps[0], "Sarah Chen")
}

func TestAtRisk_IssueBodyCitesFactorsAndTopTwoRemedies(t *testing.T) {
	clock := func() time.Time { return testNow }
	tc := &captureTracker{inner: tracker.NewMock("https://t.example.com", "CSRE", tracker.WithClock(clock))}
	d := New(tc, notify.NewMock(notify.WithClock(clock)), crm.NewMock(), WithClock(clock))

	hs := model.HealthAssessment{Score: 25, RiskLevel: model.RiskHigh, Breakdown: []model.ScoreBreakdownEntry{
		{Factor: "API Call Decline", Delta: -30, Detail: "88% drop over 7 days"},
		{Factor: "API Call Growth", Delta: 0, Detail: "steady"},
	}}
	matches := []similarity.Match{
		{Remedy: model.RemedyRecord{ID: "REM-A", Resolution: "First fix"}},
		{Remedy: model.RemedyRecord{ID: "REM-B", Resolution: "Second fix"}},
		{Remedy: model.RemedyRecord{ID: "REM-C", Resolution: "Third fix"}},
	}

	_, err := d.AtRisk(context.Background(), enterpriseCustomer(), hs, matches)
	require.NoError(t, err)
	captured := tc.last

	assert.Equal(t, "High", captured.Priority) // Critical only below 20
	assert.Contains(t, captured.Description, "API Call Decline: 88% drop over 7 days")
	assert.NotContains(t, captured.Description, "API Call Growth") // zero-delta entries stay out
	assert.Contains(t, captured.Description, "[REM-A] First fix")
	assert.Contains(t, captured.Description, "[REM-B] Second fix")
	assert.NotContains(t, captured.Description, "REM-C")
	assert.Equal(t, []string{"churn-risk", "enterprise", "health-25"}, captured.Labels)
}

type captureTracker struct {
	inner tracker.Client
	last  tracker.IssueRequest
}

func (c *captureTracker) CreateIssue(ctx context.Context, req tracker.IssueRequest) (*tracker.Issue, error) {
	c.last = req
	return c.inner.CreateIssue(ctx, req)
}

func TestAtRisk_ARRByTier(t *testing.T) {
	cases := []struct {
		tier model.Tier
		arr  int
	}{
		{model.TierStarter, 12000},
		{model.TierProfessional, 45000},
		{model.TierEnterprise, 120000},
		{model.TierEnterprisePlus, 120000},
	}

	for _, tc := range cases {
		d := testDispatcher()
		customer := enterpriseCustomer()
		customer.Tier = tc.tier
		hs := model.HealthAssessment{Score: 15, RiskLevel: model.RiskCritical}

		result, err := d.AtRisk(context.Background(), customer, hs, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.arr, result.EstimatedARRAtRisk, "tier %s", tc.tier)
	}
}

func TestExpansion_TierUpgradeAndUplift(t *testing.T) {
	d := testDispatcher()
	customer := enterpriseCustomer()
	customer.Tier = model.TierProfessional
	hs := model.HealthAssessment{Score: 100, RiskLevel: model.RiskExpansion, TierUtilization: 97.8}

	result, err := d.Expansion(context.Background(), customer, hs)
	require.NoError(t, err)

	assert.Equal(t, "expansion_workflow", result.Workflow)
	assert.Equal(t, "OPP-A1B2C3D4", result.OpportunityID)
	assert.Equal(t, model.TierProfessional, result.CurrentTier)
	assert.Equal(t, model.TierEnterprise, result.SuggestedTier)
	assert.Equal(t, 75000, result.EstimatedAdditionalARR)
	assert.Equal(t, 72, result.WinProbability)
	assert.Equal(t, "@mike.torres", result.NotifyTarget)
	require.Len(t, result.NextSteps, 4)
}

func TestExpansion_TierLadder(t *testing.T) {
	cases := []struct {
		tier      model.Tier
		suggested model.Tier
		uplift    int
	}{
		{model.TierStarter, model.TierProfessional, 33000},
		{model.TierProfessional, model.TierEnterprise, 75000},
		{model.TierEnterprise, model.TierEnterprisePlus, 140000},
	}

	for _, tc := range cases {
		d := testDispatcher()
		customer := enterpriseCustomer()
		customer.Tier = tc.tier

		result, err := d.Expansion(context.Background(), customer, model.HealthAssessment{Score: 95})
		require.NoError(t, err)
		assert.Equal(t, tc.suggested, result.SuggestedTier, "tier %s", tc.tier)
		assert.Equal(t, tc.uplift, result.EstimatedAdditionalARR, "tier %s", tc.tier)
	}
}

func TestMonitoring_NoExternalEffects(t *testing.T) {
	d := New(nil, nil, nil) // nil clients prove the path never touches them

	result := d.Monitoring(enterpriseCustomer(), model.HealthAssessment{Score: 85})

	assert.Equal(t, "monitoring_mode", result.Workflow)
	assert.Equal(t, []string{
		"Schedule proactive QBR within 30 days",
		"Monitor usage trend next 7 days",
	}, result.NextSteps)
}
