package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCreateIssue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := NewMock("https://tracker.example.com", "CSRE",
		WithClock(func() time.Time { return now }),
		WithIssueNumber(func() int { return 4821 }),
	)

	issue, err := client.CreateIssue(context.Background(), IssueRequest{
		Type:     "Escalation",
		Priority: "Critical",
		Title:    "Revenue risk detected",
		Labels:   []string{"churn-risk", "auto-generated"},
		Assignee: "csm-oncall",
	})
	require.NoError(t, err)

	assert.Equal(t, "CSRE-4821", issue.ID)
	assert.Equal(t, "https://tracker.example.com/browse/CSRE-4821", issue.URL)
	assert.Equal(t, "Open", issue.Status)
	assert.Equal(t, now, issue.CreatedAt)
	assert.True(t, issue.Synthesized)
}

func TestMockCreateIssueProjectOverride(t *testing.T) {
	client := NewMock("https://tracker.example.com", "CSRE",
		WithIssueNumber(func() int { return 1234 }),
	)

	issue, err := client.CreateIssue(context.Background(), IssueRequest{Project: "OPS"})
	require.NoError(t, err)
	assert.Equal(t, "OPS-1234", issue.ID)
}

func TestMockCreateIssueRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMock("https://tracker.example.com", "CSRE").CreateIssue(ctx, IssueRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
