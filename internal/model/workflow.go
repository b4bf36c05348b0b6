package model

import "time"

// ReportType identifies which workflow path a run resolved to.
type ReportType string

const (
	ReportAtRisk     ReportType = "at_risk"
	ReportExpansion  ReportType = "expansion"
	ReportMonitoring ReportType = "monitoring"
)

// WorkflowResult is the outcome of the dispatch phase. Exactly one concrete
// result type is produced per run.
type WorkflowResult interface {
	ReportType() ReportType
}

// AtRiskResult is the churn-prevention workflow outcome: a synthesized
// incident, an external issue, and a notification to the account manager.
type AtRiskResult struct {
	Workflow           string    `json:"workflow"`
	TriggeredAt        time.Time `json:"triggered_at"`
	IncidentID         string    `json:"incident_id"`
	CustomerID         string    `json:"customer_id"`
	CustomerName       string    `json:"customer_name"`
	HealthScore        int       `json:"health_score"`
	TicketID           string    `json:"ticket_id"`
	TicketURL          string    `json:"ticket_url"`
	NotifyChannel      string    `json:"notify_channel"`
	NotifyTarget       string    `json:"notify_target"`
	EstimatedARRAtRisk int       `json:"estimated_arr_at_risk"`
	NextSteps          []string  `json:"next_steps"`
}

func (*AtRiskResult) ReportType() ReportType { return ReportAtRisk }

// ExpansionResult is the upsell workflow outcome: a synthesized CRM
// opportunity and a notification to the sales rep.
type ExpansionResult struct {
	Workflow               string    `json:"workflow"`
	TriggeredAt            time.Time `json:"triggered_at"`
	OpportunityID          string    `json:"opportunity_id"`
	OpportunityURL         string    `json:"opportunity_url"`
	CustomerID             string    `json:"customer_id"`
	CustomerName           string    `json:"customer_name"`
	HealthScore            int       `json:"health_score"`
	CurrentTier            Tier      `json:"current_tier"`
	SuggestedTier          Tier      `json:"suggested_tier"`
	NotifyTarget           string    `json:"notify_target"`
	EstimatedAdditionalARR int       `json:"estimated_additional_arr"`
	WinProbability         int       `json:"win_probability"`
	NextSteps              []string  `json:"next_steps"`
}

func (*ExpansionResult) ReportType() ReportType { return ReportExpansion }

// MonitoringResult is the no-op path: no external effects, next steps only.
type MonitoringResult struct {
	Workflow  string   `json:"workflow"`
	NextSteps []string `json:"next_steps"`
}

func (*MonitoringResult) ReportType() ReportType { return ReportMonitoring }

// Evidence is one cited observation supporting a detected signal.
type Evidence struct {
	Factor   string `json:"factor"`
	Detail   string `json:"detail"`
	Citation string `json:"citation,omitempty"`
}

// SignalDetected summarizes what the pipeline found.
type SignalDetected struct {
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence"`
}

// Reasoning explains the revenue impact with citations back to source records.
type Reasoning struct {
	RevenueImpact string `json:"revenue_impact"`
	CitedLogID    string `json:"cited_log_id,omitempty"`
	CitedTicketID string `json:"cited_ticket_id,omitempty"`
	CitedRemedyID string `json:"cited_remedy_id,omitempty"`
}

// ActionTaken records which workflow ran and what it produced.
type ActionTaken struct {
	Workflow     string   `json:"workflow"`
	Rationale    string   `json:"rationale"`
	TicketID     string   `json:"ticket_id,omitempty"`
	Opportunity  string   `json:"opportunity,omitempty"`
	Notification string   `json:"notification,omitempty"`
	TimeSaved    string   `json:"time_saved,omitempty"`
	NextSteps    []string `json:"next_steps"`
}

// FinalReport is the durable-shaped output of one pipeline run. The Type
// field selects which optional sub-fields are populated.
type FinalReport struct {
	Type           ReportType     `json:"type"`
	SignalDetected SignalDetected `json:"signal_detected"`
	Reasoning      Reasoning      `json:"reasoning"`
	ActionTaken    ActionTaken    `json:"action_taken"`
}
