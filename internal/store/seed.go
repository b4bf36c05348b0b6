package store

import (
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

//go:embed remedies.yaml
var remediesYAML []byte

// usagePattern is seven days of synthetic telemetry for one scenario.
type usagePattern struct {
	apiCalls     [7]int
	errorRate5xx [7]float64
	errorRate4xx [7]float64
	features     []string
}

type ticketTemplate struct {
	priority  model.TicketPriority
	sentiment model.TicketSentiment
	status    model.TicketStatus
	subject   string
	category  string
}

var seedCustomers = []model.Customer{
	{ID: "CUST-001", Name: "Acme Corp", Tier: model.TierEnterprise, TierLimit: 500000, AccountManager: "Sarah Chen", ManagerHandle: "@sarah.chen", SalesRep: "Marcus Webb", Scenario: "critical"},
	{ID: "CUST-002", Name: "Nexus Cloud", Tier: model.TierProfessional, TierLimit: 100000, AccountManager: "James Okafor", ManagerHandle: "@james.okafor", SalesRep: "Lisa Park", Scenario: "expansion"},
	{ID: "CUST-003", Name: "Prometheus AI", Tier: model.TierEnterprise, TierLimit: 1000000, AccountManager: "Riya Patel", ManagerHandle: "@riya.patel", SalesRep: "Tom Bradley", Scenario: "at_risk"},
	{ID: "CUST-004", Name: "StratosBuild", Tier: model.TierStarter, TierLimit: 20000, AccountManager: "Nina Johansson", ManagerHandle: "@nina.johansson", SalesRep: "Alex Turner", Scenario: "healthy"},
	{ID: "CUST-005", Name: "Vertex Systems", Tier: model.TierProfessional, TierLimit: 150000, AccountManager: "Carlos Mendez", ManagerHandle: "@carlos.mendez", SalesRep: "Priya Sharma", Scenario: "recovering"},
}

var usagePatterns = map[string]usagePattern{
	"critical": {
		// Dramatic decline plus climbing 500 errors.
		apiCalls:     [7]int{82000, 71000, 58000, 44000, 31000, 22000, 9800},
		errorRate5xx: [7]float64{1.2, 2.8, 5.9, 8.4, 11.2, 14.7, 18.3},
		errorRate4xx: [7]float64{2.1, 3.0, 4.5, 6.1, 7.8, 9.2, 10.5},
		features:     []string{"api-core", "webhooks"},
	},
	"expansion": {
		// Steady growth approaching the tier limit.
		apiCalls:     [7]int{78000, 82000, 86000, 89000, 92000, 95000, 97800},
		errorRate5xx: [7]float64{0.3, 0.2, 0.4, 0.3, 0.2, 0.3, 0.2},
		errorRate4xx: [7]float64{0.8, 0.7, 0.9, 0.8, 0.7, 0.6, 0.5},
		features:     []string{"api-core", "analytics", "webhooks", "ml-inference", "batch-jobs"},
	},
	"at_risk": {
		apiCalls:     [7]int{45000, 42000, 38000, 35000, 31000, 28000, 24000},
		errorRate5xx: [7]float64{1.0, 2.1, 3.4, 4.8, 5.2, 6.1, 7.0},
		errorRate4xx: [7]float64{1.5, 2.0, 2.8, 3.5, 4.0, 4.5, 5.0},
		features:     []string{"api-core", "analytics"},
	},
	"healthy": {
		apiCalls:     [7]int{15200, 15800, 16100, 15900, 16300, 15700, 16000},
		errorRate5xx: [7]float64{0.2, 0.3, 0.2, 0.4, 0.3, 0.2, 0.3},
		errorRate4xx: [7]float64{0.6, 0.7, 0.5, 0.8, 0.6, 0.7, 0.6},
		features:     []string{"api-core", "analytics", "webhooks"},
	},
	"recovering": {
		// Was declining, now stabilizing.
		apiCalls:     [7]int{30000, 27000, 25000, 24500, 25100, 26000, 27200},
		errorRate5xx: [7]float64{6.0, 5.2, 4.1, 3.0, 2.1, 1.8, 1.6},
		errorRate4xx: [7]float64{4.0, 3.5, 3.0, 2.8, 2.5, 2.2, 2.0},
		features:     []string{"api-core", "webhooks"},
	},
}

var ticketTemplates = map[string][]ticketTemplate{
	"critical": {
		{model.PriorityP1, model.SentimentNegative, model.TicketOpen, "Production API returning 503 — complete outage for 4+ hours", "500-error"},
		{model.PriorityP1, model.SentimentNegative, model.TicketOpen, "Authentication tokens invalidated across all endpoints", "auth-failure"},
		{model.PriorityP2, model.SentimentNegative, model.TicketPending, "Webhook delivery failures causing data pipeline collapse", "500-error"},
		{model.PriorityP2, model.SentimentNegative, model.TicketOpen, "SLA breach imminent — escalating to executive team", "sla"},
		{model.PriorityP3, model.SentimentNegative, model.TicketOpen, "Rate limit errors despite being under quota", "quota"},
	},
	"expansion": {
		{model.PriorityP3, model.SentimentPositive, model.TicketResolved, "Question about ML Inference batch limits for scale-up", "quota"},
		{model.PriorityP4, model.SentimentPositive, model.TicketResolved, "Requesting enterprise tier pricing — usage near cap", "billing"},
	},
	"at_risk": {
		{model.PriorityP1, model.SentimentNegative, model.TicketOpen, "Intermittent 500 errors on analytics endpoints", "500-error"},
		{model.PriorityP2, model.SentimentNegative, model.TicketOpen, "API latency spikes above 4000ms threshold", "performance"},
		{model.PriorityP3, model.SentimentNeutral, model.TicketPending, "Documentation unclear for new auth flow changes", "docs"},
	},
	"healthy": {
		{model.PriorityP3, model.SentimentNeutral, model.TicketResolved, "Minor UI inconsistency in dashboard export", "ui"},
		{model.PriorityP4, model.SentimentPositive, model.TicketResolved, "Feature request: CSV export pagination", "feature-req"},
	},
	"recovering": {
		{model.PriorityP2, model.SentimentNeutral, model.TicketPending, "Error rate improving but still above baseline", "500-error"},
		{model.PriorityP3, model.SentimentNeutral, model.TicketPending, "Scheduled maintenance window needed for remediation validation", "maintenance"},
	},
}

// BuildCorpus produces the full synthetic dataset: five customers covering
// one scenario each, seven days of usage ending at now, per-scenario support
// tickets, and the remedy corpus. The output is fully deterministic for a
// given now.
func BuildCorpus(now time.Time) (*Corpus, error) {
	var remedies []model.RemedyRecord
	if err := yaml.Unmarshal(remediesYAML, &remedies); err != nil {
		return nil, eris.Wrap(err, "store: parse remedy corpus")
	}

	corpus := &Corpus{
		Customers: seedCustomers,
		Usage:     make(map[string][]model.UsageRecord, len(seedCustomers)),
		Tickets:   make(map[string][]model.TicketRecord, len(seedCustomers)),
		Remedies:  remedies,
	}

	day := now.UTC().Truncate(24 * time.Hour)

	for _, cust := range seedCustomers {
		pattern, ok := usagePatterns[cust.Scenario]
		if !ok {
			return nil, eris.Errorf("store: no usage pattern for scenario %q", cust.Scenario)
		}

		records := make([]model.UsageRecord, 0, 7)
		for i, calls := range pattern.apiCalls {
			ts := day.AddDate(0, 0, -(6 - i))
			records = append(records, model.UsageRecord{
				ID:                 fmt.Sprintf("LOG-%s-%s", cust.ID, ts.Format("20060102")),
				CustomerID:         cust.ID,
				Timestamp:          ts,
				APICalls:           calls,
				ErrorRate5xx:       pattern.errorRate5xx[i],
				ErrorRate4xx:       pattern.errorRate4xx[i],
				ActiveFeatures:     pattern.features,
				TierLimit:          cust.TierLimit,
				TierUtilizationPct: utilizationPct(calls, cust.TierLimit),
			})
		}
		corpus.Usage[cust.ID] = records

		templates := ticketTemplates[cust.Scenario]
		tickets := make([]model.TicketRecord, 0, len(templates))
		for i, tpl := range templates {
			tickets = append(tickets, model.TicketRecord{
				ID:         fmt.Sprintf("TKT-%s-%04d", cust.ID, 1000+i),
				CustomerID: cust.ID,
				CreatedAt:  day.AddDate(0, 0, -(i % 7)),
				Priority:   tpl.priority,
				Sentiment:  tpl.sentiment,
				Status:     tpl.status,
				Subject:    tpl.subject,
				Category:   tpl.category,
				Assignee:   cust.AccountManager,
			})
		}
		corpus.Tickets[cust.ID] = tickets
	}

	return corpus, nil
}

// utilizationPct computes api_calls/tier_limit*100 rounded to one decimal,
// which is the invariant every UsageRecord must satisfy.
func utilizationPct(calls, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(calls)/float64(limit)*1000) / 10
}
