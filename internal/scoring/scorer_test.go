package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

func usageWeek(apiCalls []int, rate5xx, rate4xx []float64, tierLimit int) []model.UsageRecord {
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	records := make([]model.UsageRecord, len(apiCalls))
	for i, calls := range apiCalls {
		records[i] = model.UsageRecord{
			ID:                 "LOG-" + string(rune('A'+i)),
			CustomerID:         "CUST-TEST",
			Timestamp:          day.AddDate(0, 0, i),
			APICalls:           calls,
			ErrorRate5xx:       rate5xx[i],
			ErrorRate4xx:       rate4xx[i],
			TierLimit:          tierLimit,
			TierUtilizationPct: float64(calls) / float64(tierLimit) * 100,
		}
	}
	return records
}

func flatRates(n int, v float64) []float64 {
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = v
	}
	return rates
}

func ticket(p model.TicketPriority, s model.TicketSentiment, st model.TicketStatus) model.TicketRecord {
	return model.TicketRecord{ID: "TKT-" + string(p), Priority: p, Sentiment: s, Status: st}
}

func TestScore_EmptyInputsAreZeroSignal(t *testing.T) {
	hs := Score(nil, nil)

	assert.Equal(t, 100, hs.Score)
	assert.Equal(t, model.RiskExpansion, hs.RiskLevel)
	assert.Empty(t, hs.Breakdown)
	assert.Zero(t, hs.TierUtilization)
}

func TestScore_Deterministic(t *testing.T) {
	usage := usageWeek([]int{82000, 71000, 58000, 44000, 31000, 22000, 9800},
		[]float64{1.2, 2.8, 5.9, 8.4, 11.2, 14.7, 18.3},
		[]float64{2.1, 3.0, 4.5, 6.1, 7.8, 9.2, 10.5}, 500000)
	tickets := []model.TicketRecord{
		ticket(model.PriorityP1, model.SentimentNegative, model.TicketOpen),
		ticket(model.PriorityP2, model.SentimentNegative, model.TicketPending),
	}

	a := Score(usage, tickets)
	b := Score(usage, tickets)
	assert.Equal(t, a, b)
}

func TestScore_CriticalScenario(t *testing.T) {
	// Usage declining 82000 -> 9800 with an 18.3% final 5xx rate and two open
	// P1/P2 tickets must land at or below 20.
	usage := usageWeek([]int{82000, 71000, 58000, 44000, 31000, 22000, 9800},
		[]float64{1.2, 2.8, 5.9, 8.4, 11.2, 14.7, 18.3},
		[]float64{2.1, 3.0, 4.5, 6.1, 7.8, 9.2, 10.5}, 500000)
	tickets := []model.TicketRecord{
		ticket(model.PriorityP1, model.SentimentNegative, model.TicketOpen),
		ticket(model.PriorityP2, model.SentimentNegative, model.TicketOpen),
	}

	hs := Score(usage, tickets)

	assert.LessOrEqual(t, hs.Score, 20)
	assert.Equal(t, model.RiskCritical, hs.RiskLevel)

	factors := make([]string, len(hs.Breakdown))
	for i, b := range hs.Breakdown {
		factors[i] = b.Factor
	}
	assert.Equal(t, []string{"API Call Decline", "High 5xx Error Rate", "Elevated 4xx Error Rate", "Open Critical Tickets", "Negative Sentiment Spike"}, factors)
}

func TestScore_ExpansionScenario(t *testing.T) {
	// Steady growth, >90% utilization, clean error rates, no open criticals.
	usage := usageWeek([]int{78000, 82000, 86000, 89000, 92000, 95000, 97800},
		flatRates(7, 0.2), flatRates(7, 0.5), 100000)
	tickets := []model.TicketRecord{
		ticket(model.PriorityP3, model.SentimentPositive, model.TicketResolved),
		ticket(model.PriorityP4, model.SentimentPositive, model.TicketResolved),
	}

	hs := Score(usage, tickets)

	assert.Greater(t, hs.Score, 85)
	assert.Equal(t, model.RiskExpansion, hs.RiskLevel)
	assert.InDelta(t, 97.8, hs.TierUtilization, 0.01)

	// Growth entry is informational: zero delta, present in the breakdown.
	require.NotEmpty(t, hs.Breakdown)
	assert.Equal(t, "API Call Growth", hs.Breakdown[0].Factor)
	assert.Zero(t, hs.Breakdown[0].Delta)
}

func TestScore_ClampedToRange(t *testing.T) {
	// Everything bad at once must not go below 0.
	usage := usageWeek([]int{100000, 50000, 10000, 5000, 2000, 1000, 100},
		flatRates(7, 50), flatRates(7, 50), 1000000)
	tickets := []model.TicketRecord{
		ticket(model.PriorityP1, model.SentimentNegative, model.TicketOpen),
		ticket(model.PriorityP1, model.SentimentNegative, model.TicketOpen),
		ticket(model.PriorityP2, model.SentimentNegative, model.TicketOpen),
	}

	hs := Score(usage, tickets)
	assert.GreaterOrEqual(t, hs.Score, 0)
	assert.LessOrEqual(t, hs.Score, 100)
	assert.Equal(t, model.RiskCritical, hs.RiskLevel)
}

func TestScore_TicketPenaltyCapped(t *testing.T) {
	tickets := []model.TicketRecord{
		ticket(model.PriorityP1, model.SentimentNeutral, model.TicketOpen),
		ticket(model.PriorityP1, model.SentimentNeutral, model.TicketOpen),
		ticket(model.PriorityP2, model.SentimentNeutral, model.TicketOpen),
		ticket(model.PriorityP2, model.SentimentNeutral, model.TicketOpen),
	}

	hs := Score(nil, tickets)

	// 4 open criticals cap at -30, not -60.
	assert.Equal(t, 70, hs.Score)
	require.Len(t, hs.Breakdown, 1)
	assert.Equal(t, -30, hs.Breakdown[0].Delta)
	assert.Len(t, hs.Breakdown[0].ReferenceIDs, 4)
}

func TestScore_Monotonic_DeclineCannotRaiseScore(t *testing.T) {
	rate5 := flatRates(7, 0.5)
	rate4 := flatRates(7, 0.5)
	base := usageWeek([]int{50000, 50000, 50000, 50000, 50000, 50000, 45000}, rate5, rate4, 1000000)
	baseline := Score(base, nil).Score

	// Push the last day down past the 20% decline threshold.
	for _, lastDay := range []int{39000, 30000, 20000, 10000, 1000} {
		declined := usageWeek([]int{50000, 50000, 50000, 50000, 50000, 50000, lastDay}, rate5, rate4, 1000000)
		assert.LessOrEqual(t, Score(declined, nil).Score, baseline, "last day %d", lastDay)
	}
}

func TestScore_PositiveBonusRequiresNoOpenCriticals(t *testing.T) {
	tickets := []model.TicketRecord{
		ticket(model.PriorityP3, model.SentimentPositive, model.TicketResolved),
		ticket(model.PriorityP4, model.SentimentPositive, model.TicketResolved),
		ticket(model.PriorityP1, model.SentimentPositive, model.TicketOpen),
	}

	hs := Score(nil, tickets)

	// posRatio 1.0 > 0.6, but the open P1 blocks the bonus and costs -15.
	assert.Equal(t, 85, hs.Score)
	for _, b := range hs.Breakdown {
		assert.NotEqual(t, "Positive Engagement Signal", b.Factor)
	}
}

func TestScore_CitationsPointAtRecords(t *testing.T) {
	usage := usageWeek([]int{10000, 9000, 8000, 7000, 6000, 5000, 4000},
		flatRates(7, 9.9), flatRates(7, 9.9), 1000000)
	tickets := []model.TicketRecord{
		ticket(model.PriorityP1, model.SentimentNegative, model.TicketOpen),
	}

	hs := Score(usage, tickets)

	byFactor := map[string]model.ScoreBreakdownEntry{}
	for _, b := range hs.Breakdown {
		byFactor[b.Factor] = b
	}

	lastID := usage[len(usage)-1].ID
	assert.Equal(t, lastID, byFactor["High 5xx Error Rate"].ReferenceID)
	assert.Equal(t, lastID, byFactor["API Call Decline"].ReferenceID)
	assert.Equal(t, []string{"TKT-P1"}, byFactor["Open Critical Tickets"].ReferenceIDs)
}

func TestScore_BandBoundaries(t *testing.T) {
	// One open critical and nothing else: exactly 85, which is the strict
	// expansion boundary and classifies as EXPANSION but must not be treated
	// as > 85 by callers.
	hs := Score(nil, []model.TicketRecord{ticket(model.PriorityP2, model.SentimentNeutral, model.TicketOpen)})
	assert.Equal(t, 85, hs.Score)
	assert.Equal(t, model.RiskExpansion, hs.RiskLevel)
}
