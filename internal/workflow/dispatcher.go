// Package workflow executes the autonomous phase of a run: the at-risk
// churn-prevention path, the expansion upsell path, or the monitoring no-op.
// All external effects go through the pkg clients so the paths stay testable.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/similarity"
	"github.com/sells-group/revenue-sentinel/pkg/crm"
	"github.com/sells-group/revenue-sentinel/pkg/notify"
	"github.com/sells-group/revenue-sentinel/pkg/tracker"
)

// criticalScoreCutoff splits at-risk runs into Critical and High issue
// priority.
const criticalScoreCutoff = 20

// winProbability is the fixed probability attached to expansion
// opportunities. The signal is behavioral, not forecasted, so a single
// calibrated number is used for every upsell.
const winProbability = 72

// closeWindowDays is how far out an expansion opportunity's close date is set.
const closeWindowDays = 30

// arrAtRisk estimates annual recurring revenue exposed by a churn, per tier.
var arrAtRisk = map[model.Tier]int{
	model.TierStarter:        12000,
	model.TierProfessional:   45000,
	model.TierEnterprise:     120000,
	model.TierEnterprisePlus: 120000,
}

// tierUpgrade maps each tier to its upsell target.
var tierUpgrade = map[model.Tier]model.Tier{
	model.TierStarter:      model.TierProfessional,
	model.TierProfessional: model.TierEnterprise,
	model.TierEnterprise:   model.TierEnterprisePlus,
}

// arrUplift estimates additional ARR from upgrading out of the given tier.
var arrUplift = map[model.Tier]int{
	model.TierStarter:      33000,
	model.TierProfessional: 75000,
	model.TierEnterprise:   140000,
}

// Dispatcher routes a scored run to its workflow and performs the external
// effects.
type Dispatcher struct {
	tracker  tracker.Client
	notifier notify.Client
	crm      crm.Client
	printer  *message.Printer
	now      func() time.Time
	newID    func() string
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the dispatcher's clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIncidentID overrides the incident-id source.
func WithIncidentID(newID func() string) Option {
	return func(d *Dispatcher) { d.newID = newID }
}

// New returns a Dispatcher wired to the given effect clients.
func New(tc tracker.Client, nc notify.Client, cc crm.Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tracker:  tc,
		notifier: nc,
		crm:      cc,
		printer:  message.NewPrinter(language.English),
		now:      time.Now,
		newID:    func() string { return "INC-" + strings.ToUpper(uuid.NewString()[:8]) },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AtRisk runs the churn-prevention workflow: a tracker issue assigned to the
// account manager plus a notification to the tier's alert channel.
func (d *Dispatcher) AtRisk(ctx context.Context, customer model.Customer, hs model.HealthAssessment, matches []similarity.Match) (*model.AtRiskResult, error) {
	priority := "High"
	if hs.Score < criticalScoreCutoff {
		priority = "Critical"
	}

	issue, err := d.tracker.CreateIssue(ctx, tracker.IssueRequest{
		Type:        "Churn Risk Incident",
		Priority:    priority,
		Title:       fmt.Sprintf("[CHURN RISK] %s - Health Score %d/100", customer.Name, hs.Score),
		Description: d.issueDescription(customer, hs, matches),
		Labels:      []string{"churn-risk", strings.ToLower(string(customer.Tier)), fmt.Sprintf("health-%d", hs.Score)},
		Assignee:    customer.AccountManager,
	})
	if err != nil {
		return nil, eris.Wrap(err, "workflow: create churn issue")
	}

	channel := "#cs-alerts-" + strings.ToLower(string(customer.Tier))
	receipt, err := d.notifier.Send(ctx, notify.Message{
		Channel:  channel,
		DirectTo: customer.ManagerHandle,
		Text:     fmt.Sprintf("Revenue alert: %s churn risk for %s", hs.RiskLevel, customer.Name),
		Fields: []notify.Field{
			{Label: "Health Score", Value: fmt.Sprintf("%d/100", hs.Score)},
			{Label: "Risk Level", Value: string(hs.RiskLevel)},
			{Label: "Account Manager", Value: customer.AccountManager},
			{Label: "Issue", Value: issue.ID},
		},
		LinkText: "View Full Report: " + issue.URL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "workflow: notify account manager")
	}

	return &model.AtRiskResult{
		Workflow:           "at_risk_workflow",
		TriggeredAt:        d.now().UTC(),
		IncidentID:         d.newID(),
		CustomerID:         customer.ID,
		CustomerName:       customer.Name,
		HealthScore:        hs.Score,
		TicketID:           issue.ID,
		TicketURL:          issue.URL,
		NotifyChannel:      receipt.Channel,
		NotifyTarget:       receipt.DirectTo,
		EstimatedARRAtRisk: arrAtRisk[customer.Tier],
		NextSteps: []string{
			fmt.Sprintf("Account Manager %s notified via %s", customer.AccountManager, customer.ManagerHandle),
			fmt.Sprintf("Issue %s created and assigned", issue.ID),
			"Emergency call scheduled within 24 hours",
			"SRE on-call paged for technical remediation",
		},
	}, nil
}

// Expansion runs the upsell workflow: a CRM opportunity owned by the sales
// rep plus a notification to the expansion channel.
func (d *Dispatcher) Expansion(ctx context.Context, customer model.Customer, hs model.HealthAssessment) (*model.ExpansionResult, error) {
	suggested, ok := tierUpgrade[customer.Tier]
	if !ok {
		suggested = model.TierEnterprisePlus
	}
	uplift := arrUplift[customer.Tier]
	closeDate := d.now().UTC().AddDate(0, 0, closeWindowDays)

	opp, err := d.crm.CreateOpportunity(ctx, crm.OpportunityRequest{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Name:         fmt.Sprintf("%s - Tier Expansion to %s", customer.Name, suggested),
		Type:         "Upsell",
		CurrentTier:  string(customer.Tier),
		ProposedTier: string(suggested),
		EstimatedARR: uplift,
		Probability:  winProbability,
		CloseDate:    closeDate,
		Owner:        customer.SalesRep,
	})
	if err != nil {
		return nil, eris.Wrap(err, "workflow: create opportunity")
	}

	repHandle := "@" + strings.ReplaceAll(strings.ToLower(customer.SalesRep), " ", ".")
	receipt, err := d.notifier.Send(ctx, notify.Message{
		Channel:  "#sales-expansion-signals",
		DirectTo: repHandle,
		Text:     fmt.Sprintf("Expansion signal detected: %s", customer.Name),
		Fields: []notify.Field{
			{Label: "Current Tier", Value: string(customer.Tier)},
			{Label: "Suggested Tier", Value: string(suggested)},
			{Label: "Tier Utilization", Value: fmt.Sprintf("%.1f%%", hs.TierUtilization)},
			{Label: "Health Score", Value: fmt.Sprintf("%d/100", hs.Score)},
			{Label: "Estimated ARR Impact", Value: d.printer.Sprintf("$%d", uplift)},
			{Label: "Win Probability", Value: fmt.Sprintf("%d%%", winProbability)},
		},
		LinkText: "View Opportunity: " + opp.ID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "workflow: notify sales rep")
	}

	return &model.ExpansionResult{
		Workflow:               "expansion_workflow",
		TriggeredAt:            d.now().UTC(),
		OpportunityID:          opp.ID,
		OpportunityURL:         fmt.Sprintf("https://crm.revenuesentinel.io/opportunities/%s", opp.ID),
		CustomerID:             customer.ID,
		CustomerName:           customer.Name,
		HealthScore:            hs.Score,
		CurrentTier:            customer.Tier,
		SuggestedTier:          suggested,
		NotifyTarget:           receipt.DirectTo,
		EstimatedAdditionalARR: uplift,
		WinProbability:         winProbability,
		NextSteps: []string{
			fmt.Sprintf("Sales Rep %s notified", customer.SalesRep),
			fmt.Sprintf("Opportunity %s created", opp.ID),
			"Suggest upgrade pitch within 48 hours",
			fmt.Sprintf("Prepare ROI report for %s tier value", suggested),
		},
	}, nil
}

// Monitoring is the no-effect path for scores in the stable middle band.
func (d *Dispatcher) Monitoring(customer model.Customer, hs model.HealthAssessment) *model.MonitoringResult {
	return &model.MonitoringResult{
		Workflow: "monitoring_mode",
		NextSteps: []string{
			"Schedule proactive QBR within 30 days",
			"Monitor usage trend next 7 days",
		},
	}
}

// issueDescription renders the tracker issue body: risk factors that fired
// plus up to two recommended remediations.
func (d *Dispatcher) issueDescription(customer model.Customer, hs model.HealthAssessment, matches []similarity.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s (%s)\n", customer.Name, customer.ID)
	fmt.Fprintf(&b, "Health Score: %d/100 - %s Risk\n\n", hs.Score, hs.RiskLevel)

	b.WriteString("Risk Factors Detected:\n")
	for _, entry := range hs.Breakdown {
		if entry.Delta >= 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", entry.Factor, entry.Detail)
	}

	if len(matches) > 0 {
		b.WriteString("\nRecommended Remediation:\n")
		for i, m := range matches {
			if i == 2 {
				break
			}
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, m.Remedy.ID, truncate(m.Remedy.Resolution, 100))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
