// Package scoring turns usage telemetry and support tickets into a health
// assessment. Score computes a 0-100 score by applying fixed-order rules to a
// starting value of 100; every rule is evaluated on every call and the
// breakdown preserves evaluation order.
package scoring

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/policy"
)

// Rule thresholds and effects. Deductions and bonuses are fixed; there is no
// fuzzy or probabilistic logic anywhere in this package.
const (
	declineThreshold   = 0.20 // fraction of first-day calls lost by the last day
	growthThreshold    = 0.05 // growth beyond 5% is worth an informational entry
	rate5xxThreshold   = 5.0
	rate4xxThreshold   = 8.0
	negativeThreshold  = 0.40
	positiveThreshold  = 0.60
	utilizationBonusAt = 90.0

	declinePenalty   = 30
	rate5xxPenalty   = 20
	rate4xxPenalty   = 5
	perTicketPenalty = 15
	maxTicketPenalty = 30
	negativePenalty  = 10
	utilizationBonus = 20
	positiveBonus    = 10
)

var numFmt = message.NewPrinter(language.English)

// Score computes a HealthAssessment from a customer's telemetry. It is a pure
// function: no I/O, no hidden state, byte-identical output for identical
// input. Empty inputs are zero-signal, not errors: with no usage records the
// decline ratio is defined as 0, and with no tickets all ratios are 0.
func Score(usage []model.UsageRecord, tickets []model.TicketRecord) model.HealthAssessment {
	score := 100
	breakdown := []model.ScoreBreakdownEntry{}

	var first, last model.UsageRecord
	if len(usage) > 0 {
		first = usage[0]
		last = usage[len(usage)-1]
	}

	// API call trend, first day vs last day.
	declineRatio := 0.0
	if first.APICalls > 0 {
		declineRatio = float64(first.APICalls-last.APICalls) / float64(first.APICalls)
	}
	if declineRatio > declineThreshold {
		score -= declinePenalty
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor: "API Call Decline",
			Delta:  -declinePenalty,
			Detail: numFmt.Sprintf("%.1f%% decline over %d days (%d → %d)",
				declineRatio*100, len(usage), first.APICalls, last.APICalls),
			ReferenceID: last.ID,
		})
	} else if declineRatio < -growthThreshold {
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor: "API Call Growth",
			Delta:  0,
			Detail: fmt.Sprintf("%.1f%% growth over %d days", -declineRatio*100, len(usage)),
		})
	}

	// 500-error rate on the most recent day.
	if last.ErrorRate5xx > rate5xxThreshold {
		score -= rate5xxPenalty
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor:      "High 5xx Error Rate",
			Delta:       -rate5xxPenalty,
			Detail:      fmt.Sprintf("Current 500-error rate: %.1f%% (threshold: %.0f%%)", last.ErrorRate5xx, rate5xxThreshold),
			ReferenceID: last.ID,
		})
	}

	// 400-error rate, warning only.
	if last.ErrorRate4xx > rate4xxThreshold {
		score -= rate4xxPenalty
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor: "Elevated 4xx Error Rate",
			Delta:  -rate4xxPenalty,
			Detail: fmt.Sprintf("Current 400-error rate: %.1f%% (warning threshold: %.0f%%)", last.ErrorRate4xx, rate4xxThreshold),
		})
	}

	// Unresolved P1/P2 tickets.
	var openCriticalIDs []string
	for _, t := range tickets {
		if t.IsOpenCritical() {
			openCriticalIDs = append(openCriticalIDs, t.ID)
		}
	}
	if penalty := min(len(openCriticalIDs)*perTicketPenalty, maxTicketPenalty); penalty > 0 {
		score -= penalty
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor:       "Open Critical Tickets",
			Delta:        -penalty,
			Detail:       fmt.Sprintf("%d open P1/P2 tickets (-%d each, max -%d)", len(openCriticalIDs), perTicketPenalty, maxTicketPenalty),
			ReferenceIDs: openCriticalIDs,
		})
	}

	// Sentiment ratios.
	negRatio, posRatio := 0.0, 0.0
	if len(tickets) > 0 {
		neg, pos := 0, 0
		for _, t := range tickets {
			switch t.Sentiment {
			case model.SentimentNegative:
				neg++
			case model.SentimentPositive:
				pos++
			}
		}
		negRatio = float64(neg) / float64(len(tickets))
		posRatio = float64(pos) / float64(len(tickets))
	}
	if negRatio > negativeThreshold {
		score -= negativePenalty
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor: "Negative Sentiment Spike",
			Delta:  -negativePenalty,
			Detail: fmt.Sprintf("%.0f%% of tickets express negative sentiment (threshold: %.0f%%)", negRatio*100, negativeThreshold*100),
		})
	}

	// Tier utilization bonus: approaching the limit is an expansion signal.
	if last.TierUtilizationPct > utilizationBonusAt {
		score += utilizationBonus
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor:      "Tier Limit Approaching (Expansion Signal)",
			Delta:       utilizationBonus,
			Detail:      fmt.Sprintf("Tier utilization at %.1f%% — upgrade candidate", last.TierUtilizationPct),
			ReferenceID: last.ID,
		})
	}

	// Positive engagement bonus.
	if posRatio > positiveThreshold && len(openCriticalIDs) == 0 {
		score += positiveBonus
		breakdown = append(breakdown, model.ScoreBreakdownEntry{
			Factor: "Positive Engagement Signal",
			Delta:  positiveBonus,
			Detail: fmt.Sprintf("%.0f%% positive sentiment with no critical open tickets", posRatio*100),
		})
	}

	score = max(0, min(100, score))
	level, label := policy.Classify(score)

	return model.HealthAssessment{
		Score:           score,
		RiskLevel:       level,
		RiskLabel:       label,
		Breakdown:       breakdown,
		TierUtilization: last.TierUtilizationPct,
	}
}
