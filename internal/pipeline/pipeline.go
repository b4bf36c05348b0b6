// Package pipeline orchestrates the four-phase analysis run: data retrieval,
// quantitative scoring, conditional similarity search, and autonomous
// workflow execution. Every step is narrated through an ordered event stream.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/policy"
	"github.com/sells-group/revenue-sentinel/internal/scoring"
	"github.com/sells-group/revenue-sentinel/internal/similarity"
	"github.com/sells-group/revenue-sentinel/internal/store"
	"github.com/sells-group/revenue-sentinel/internal/workflow"
)

const (
	subjectPreviewLen = 60
	resolutionPreview = 100
	previewRecords    = 3
)

// Pipeline runs the four-phase analysis for one customer at a time. It is
// stateless between runs and safe for concurrent use.
type Pipeline struct {
	store      store.Store
	retriever  similarity.Retriever
	dispatcher *workflow.Dispatcher
	pace       time.Duration
	now        func() time.Time
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithPace inserts a presentation delay between emitted steps so a live
// stream reads naturally. Ordering never depends on it.
func WithPace(d time.Duration) Option {
	return func(p *Pipeline) { p.pace = d }
}

// WithClock overrides the pipeline's clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New returns a Pipeline wired to its collaborators.
func New(st store.Store, rt similarity.Retriever, d *workflow.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{store: st, retriever: rt, dispatcher: d, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline for customerID, emitting events to sink.
//
// An unknown customer is rejected with store.ErrNotFound before any event is
// emitted. After the first event, any failure produces exactly one terminal
// error event; success produces exactly one pipeline_complete. A sink error
// aborts the run immediately with no further emission.
func (p *Pipeline) Run(ctx context.Context, customerID string, sink Sink) (*model.FinalReport, error) {
	customer, err := p.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: customer %s", customerID)
	}

	report, err := p.run(ctx, customer, sink)
	if err != nil {
		if sinkErr, ok := eris.Cause(err).(*sinkError); ok {
			return nil, sinkErr.err
		}
		if emitErr := p.emit(ctx, sink, model.EventError, map[string]any{
			"message": eris.Cause(err).Error(),
		}); emitErr != nil {
			zap.L().Warn("pipeline: error event not delivered", zap.Error(emitErr))
		}
		return nil, err
	}
	return report, nil
}

// sinkError marks failures of the sink itself, which must not trigger a
// follow-up error event.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return e.err.Error() }

func (p *Pipeline) emit(ctx context.Context, sink Sink, kind model.EventKind, payload map[string]any) error {
	if err := sink.Emit(ctx, newEvent(kind, payload, p.now().UTC())); err != nil {
		return &sinkError{err: err}
	}
	p.sleep(ctx)
	return nil
}

func (p *Pipeline) sleep(ctx context.Context) {
	if p.pace <= 0 {
		return
	}
	select {
	case <-time.After(p.pace):
	case <-ctx.Done():
	}
}

func (p *Pipeline) run(ctx context.Context, customer *model.Customer, sink Sink) (*model.FinalReport, error) {
	log := zap.L().With(zap.String("customer_id", customer.ID))

	// Phase 1: data retrieval.
	if err := p.emit(ctx, sink, model.EventPhaseStart, map[string]any{
		"phase":       1,
		"name":        "Data Retrieval",
		"description": "Querying usage logs and support tickets",
	}); err != nil {
		return nil, err
	}

	usage, err := p.store.GetUsage(ctx, customer.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: usage lookup")
	}
	if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
		"phase":      1,
		"tool":       "search_usage_logs",
		"hits_count": len(usage),
		"preview":    usagePreview(usage),
	}); err != nil {
		return nil, err
	}

	tickets, err := p.store.GetTickets(ctx, customer.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: ticket lookup")
	}
	if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
		"phase":         1,
		"tool":          "search_support_tickets",
		"hits_count":    len(tickets),
		"sentiment_agg": sentimentAgg(tickets),
		"priority_agg":  priorityAgg(tickets),
		"preview":       ticketPreview(tickets),
	}); err != nil {
		return nil, err
	}
	if err := p.emit(ctx, sink, model.EventPhaseComplete, map[string]any{
		"phase": 1, "status": "success",
	}); err != nil {
		return nil, err
	}

	// Phase 2: quantitative analysis.
	if err := p.emit(ctx, sink, model.EventPhaseStart, map[string]any{
		"phase":       2,
		"name":        "Quantitative Analysis",
		"description": "Running health score calculation",
	}); err != nil {
		return nil, err
	}

	hs := scoring.Score(usage, tickets)
	log.Info("health score computed",
		zap.Int("score", hs.Score),
		zap.String("risk_level", string(hs.RiskLevel)))

	if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
		"phase":            2,
		"tool":             "calculate_health_score",
		"score":            hs.Score,
		"risk_level":       hs.RiskLevel,
		"risk_label":       hs.RiskLabel,
		"breakdown":        hs.Breakdown,
		"tier_utilization": hs.TierUtilization,
	}); err != nil {
		return nil, err
	}
	if err := p.emit(ctx, sink, model.EventPhaseComplete, map[string]any{
		"phase": 2, "status": "success", "score": hs.Score,
	}); err != nil {
		return nil, err
	}

	// Phase 3: contextual search, only below the at-risk threshold.
	var matches []similarity.Match
	if policy.NeedsSimilarity(hs.Score) {
		if err := p.emit(ctx, sink, model.EventPhaseStart, map[string]any{
			"phase":       3,
			"name":        "Contextual Search",
			"description": fmt.Sprintf("Health Score %d < %d - retrieving similar past remediations", hs.Score, policy.AtRiskThreshold),
		}); err != nil {
			return nil, err
		}

		matches, err = p.retriever.Rank(ctx, hs.Breakdown)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: remedy search")
		}
		if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
			"phase": 3,
			"tool":  "vector_search_remedies",
			"hits":  remedyHits(matches),
		}); err != nil {
			return nil, err
		}
		if err := p.emit(ctx, sink, model.EventPhaseComplete, map[string]any{
			"phase": 3, "status": "success", "remedies_found": len(matches),
		}); err != nil {
			return nil, err
		}
	} else {
		if err := p.emit(ctx, sink, model.EventPhaseSkip, map[string]any{
			"phase":  3,
			"reason": fmt.Sprintf("Health Score %d >= %d - similarity search not required", hs.Score, policy.AtRiskThreshold),
		}); err != nil {
			return nil, err
		}
	}

	// Phase 4: autonomous execution. A customer with no usage and no tickets
	// scores a clean 100, but there is no telemetry to act on, so the run is
	// routed to monitoring instead of synthesizing an expansion opportunity.
	path := policy.SelectWorkflow(hs.Score)
	if len(usage) == 0 && len(tickets) == 0 {
		path = model.ReportMonitoring
	}
	if err := p.emit(ctx, sink, model.EventPhaseStart, map[string]any{
		"phase":       4,
		"name":        "Autonomous Execution",
		"description": phaseDescription(path),
	}); err != nil {
		return nil, err
	}

	report, err := p.execute(ctx, sink, *customer, hs, usage, tickets, matches, path)
	if err != nil {
		return nil, err
	}

	if err := p.emit(ctx, sink, model.EventPhaseComplete, map[string]any{
		"phase": 4, "status": "success",
	}); err != nil {
		return nil, err
	}

	if err := p.emit(ctx, sink, model.EventPipelineComplete, map[string]any{
		"customer_id":  customer.ID,
		"health_score": hs.Score,
		"risk_level":   hs.RiskLevel,
		"final_report": report,
		"all_logs":     usage,
		"all_tickets":  tickets,
	}); err != nil {
		return nil, err
	}

	log.Info("pipeline complete", zap.String("report_type", string(report.Type)))
	return report, nil
}

// execute runs the selected workflow and emits its tool_result event.
func (p *Pipeline) execute(ctx context.Context, sink Sink, customer model.Customer, hs model.HealthAssessment, usage []model.UsageRecord, tickets []model.TicketRecord, matches []similarity.Match, path model.ReportType) (*model.FinalReport, error) {
	switch path {
	case model.ReportAtRisk:
		result, err := p.dispatcher.AtRisk(ctx, customer, hs, matches)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: at-risk workflow")
		}
		if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
			"phase":                 4,
			"tool":                  "at_risk_workflow",
			"workflow":              result.Workflow,
			"incident_id":           result.IncidentID,
			"ticket_id":             result.TicketID,
			"ticket_url":            result.TicketURL,
			"notify_channel":        result.NotifyChannel,
			"notify_target":         result.NotifyTarget,
			"estimated_arr_at_risk": result.EstimatedARRAtRisk,
			"next_steps":            result.NextSteps,
		}); err != nil {
			return nil, err
		}
		return atRiskReport(hs, usage, tickets, matches, result), nil

	case model.ReportExpansion:
		result, err := p.dispatcher.Expansion(ctx, customer, hs)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: expansion workflow")
		}
		if err := p.emit(ctx, sink, model.EventToolResult, map[string]any{
			"phase":                    4,
			"tool":                     "expansion_workflow",
			"workflow":                 result.Workflow,
			"opportunity_id":           result.OpportunityID,
			"opportunity_url":          result.OpportunityURL,
			"notify_target":            result.NotifyTarget,
			"estimated_additional_arr": result.EstimatedAdditionalARR,
			"win_probability":          result.WinProbability,
			"next_steps":               result.NextSteps,
		}); err != nil {
			return nil, err
		}
		return expansionReport(hs, usage, result), nil

	default:
		result := p.dispatcher.Monitoring(customer, hs)
		return monitoringReport(hs, usage, result), nil
	}
}

func phaseDescription(path model.ReportType) string {
	switch path {
	case model.ReportAtRisk:
		return "Triggering at_risk_workflow - issue tracker and account manager notification"
	case model.ReportExpansion:
		return "Triggering expansion_workflow - sales upsell notification"
	default:
		return "Monitoring mode - no immediate workflow required"
	}
}

func usagePreview(usage []model.UsageRecord) []map[string]any {
	start := max(len(usage)-previewRecords, 0)
	preview := make([]map[string]any, 0, previewRecords)
	for _, record := range usage[start:] {
		preview = append(preview, map[string]any{
			"log_id":           record.ID,
			"date":             record.Timestamp.Format("2006-01-02"),
			"api_calls":        record.APICalls,
			"error_5xx":        record.ErrorRate5xx,
			"tier_utilization": record.TierUtilizationPct,
		})
	}
	return preview
}

func ticketPreview(tickets []model.TicketRecord) []map[string]any {
	preview := make([]map[string]any, 0, previewRecords)
	for i, t := range tickets {
		if i == previewRecords {
			break
		}
		subject := t.Subject
		if len(subject) > subjectPreviewLen {
			subject = subject[:subjectPreviewLen] + "..."
		}
		preview = append(preview, map[string]any{
			"ticket_id": t.ID,
			"priority":  t.Priority,
			"sentiment": t.Sentiment,
			"status":    t.Status,
			"subject":   subject,
		})
	}
	return preview
}

func sentimentAgg(tickets []model.TicketRecord) map[model.TicketSentiment]int {
	agg := make(map[model.TicketSentiment]int)
	for _, t := range tickets {
		agg[t.Sentiment]++
	}
	return agg
}

func priorityAgg(tickets []model.TicketRecord) map[model.TicketPriority]int {
	agg := make(map[model.TicketPriority]int)
	for _, t := range tickets {
		agg[t.Priority]++
	}
	return agg
}

func remedyHits(matches []similarity.Match) []map[string]any {
	hits := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		resolution := m.Remedy.Resolution
		if len(resolution) > resolutionPreview {
			resolution = resolution[:resolutionPreview] + "..."
		}
		hits = append(hits, map[string]any{
			"remedy_id":           m.Remedy.ID,
			"similarity_score":    m.Score,
			"resolution_preview":  resolution,
			"outcome":             m.Remedy.Outcome,
			"time_to_resolve_hrs": m.Remedy.ResolveHours,
		})
	}
	return hits
}
