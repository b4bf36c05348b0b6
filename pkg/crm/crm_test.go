package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCreateOpportunity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	closeDate := now.AddDate(0, 0, 30)
	client := NewMock(
		WithClock(func() time.Time { return now }),
		WithIDSource(func() string { return "OPP-A1B2C3D4" }),
	)

	opp, err := client.CreateOpportunity(context.Background(), OpportunityRequest{
		CustomerID:   "CUST-002",
		CustomerName: "DataViz Pro",
		Name:         "DataViz Pro - Tier Upgrade",
		Type:         "Upsell",
		CurrentTier:  "Professional",
		ProposedTier: "Enterprise",
		EstimatedARR: 75000,
		Probability:  72,
		CloseDate:    closeDate,
		Owner:        "sarah.kim",
	})
	require.NoError(t, err)

	assert.Equal(t, "OPP-A1B2C3D4", opp.ID)
	assert.Equal(t, "Qualification", opp.Stage)
	assert.Equal(t, 75000, opp.EstimatedARR)
	assert.Equal(t, closeDate, opp.CloseDate)
	assert.Equal(t, now, opp.CreatedAt)
	assert.True(t, opp.Synthesized)
}

func TestMockCreateOpportunityDefaultIDs(t *testing.T) {
	client := NewMock()

	a, err := client.CreateOpportunity(context.Background(), OpportunityRequest{})
	require.NoError(t, err)
	b, err := client.CreateOpportunity(context.Background(), OpportunityRequest{})
	require.NoError(t, err)

	assert.Regexp(t, `^OPP-[0-9A-F]{8}$`, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMockCreateOpportunityRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMock().CreateOpportunity(ctx, OpportunityRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
