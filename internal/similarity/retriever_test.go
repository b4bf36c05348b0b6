package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

func corpus() []model.RemedyRecord {
	return []model.RemedyRecord{
		{ID: "REM-1", ErrorPattern: "500-error + api-core + auth-failure", BaseSimilarity: 0.94},
		{ID: "REM-2", ErrorPattern: "500-error + webhooks + pipeline-failure", BaseSimilarity: 0.87},
		{ID: "REM-3", ErrorPattern: "declining-api-calls + negative-sentiment + P1-ticket", BaseSimilarity: 0.81},
		{ID: "REM-4", ErrorPattern: "billing-dispute + invoice", BaseSimilarity: 0.40},
	}
}

func factors(names ...string) []model.ScoreBreakdownEntry {
	entries := make([]model.ScoreBreakdownEntry, len(names))
	for i, n := range names {
		entries[i] = model.ScoreBreakdownEntry{Factor: n, Delta: -10}
	}
	return entries
}

func TestRank_ServerErrorBoost(t *testing.T) {
	matches := rank(corpus(), factors("High 5xx Error Rate"))

	require.Len(t, matches, 3)
	assert.Equal(t, "REM-1", matches[0].Remedy.ID)
	assert.Equal(t, 0.99, matches[0].Score) // 0.94 + 0.05
	assert.Equal(t, "REM-2", matches[1].Remedy.ID)
	assert.Equal(t, 0.92, matches[1].Score)
	// REM-3 has no 500-error keyword: base score only.
	assert.Equal(t, "REM-3", matches[2].Remedy.ID)
	assert.Equal(t, 0.81, matches[2].Score)
}

func TestRank_DeclineBoost(t *testing.T) {
	matches := rank(corpus(), factors("API Call Decline"))

	byID := map[string]float64{}
	for _, m := range matches {
		byID[m.Remedy.ID] = m.Score
	}
	assert.Equal(t, 0.85, byID["REM-3"]) // 0.81 + 0.04
	assert.Equal(t, 0.94, byID["REM-1"]) // no boost without a 5xx factor
}

func TestRank_NoBoostWithoutMatchingFactor(t *testing.T) {
	// A factor that mentions neither 5xx nor decline must leave every score
	// at its base value.
	matches := rank(corpus(), factors("Negative Sentiment Spike"))

	require.Len(t, matches, 3)
	assert.Equal(t, 0.94, matches[0].Score)
	assert.Equal(t, 0.87, matches[1].Score)
	assert.Equal(t, 0.81, matches[2].Score)
}

func TestRank_CapAtOne(t *testing.T) {
	c := []model.RemedyRecord{{ID: "REM-X", ErrorPattern: "500-error + declining-api-calls", BaseSimilarity: 0.98}}
	matches := rank(c, factors("High 5xx Error Rate", "API Call Decline"))

	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestRank_TopThree(t *testing.T) {
	matches := rank(corpus(), nil)
	assert.Len(t, matches, 3)

	matches = rank(corpus()[:2], nil)
	assert.Len(t, matches, 2)
}

func TestRank_EmptyCorpus(t *testing.T) {
	assert.Empty(t, rank(nil, factors("High 5xx Error Rate")))
}

func TestRank_SortedDescending(t *testing.T) {
	matches := rank(corpus(), factors("API Call Decline", "High 5xx Error Rate"))
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}
