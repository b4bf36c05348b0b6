package model

import "time"

// UsageRecord is one day of usage telemetry for a customer. Records are
// immutable once produced and always handled oldest to newest.
type UsageRecord struct {
	ID                 string    `json:"log_id"`
	CustomerID         string    `json:"customer_id"`
	Timestamp          time.Time `json:"timestamp"`
	APICalls           int       `json:"api_calls"`
	ErrorRate5xx       float64   `json:"error_rate_5xx"`
	ErrorRate4xx       float64   `json:"error_rate_4xx"`
	ActiveFeatures     []string  `json:"active_features"`
	TierLimit          int       `json:"tier_limit"`
	TierUtilizationPct float64   `json:"tier_utilization_pct"` // api_calls/tier_limit*100, 1 decimal
}

// TicketPriority is the support ticket priority level.
type TicketPriority string

const (
	PriorityP1 TicketPriority = "P1"
	PriorityP2 TicketPriority = "P2"
	PriorityP3 TicketPriority = "P3"
	PriorityP4 TicketPriority = "P4"
)

// TicketSentiment is the classified sentiment of a support ticket.
type TicketSentiment string

const (
	SentimentPositive TicketSentiment = "positive"
	SentimentNeutral  TicketSentiment = "neutral"
	SentimentNegative TicketSentiment = "negative"
)

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketPending  TicketStatus = "pending"
	TicketResolved TicketStatus = "resolved"
)

// TicketRecord is a single support ticket.
type TicketRecord struct {
	ID         string          `json:"ticket_id"`
	CustomerID string          `json:"customer_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Priority   TicketPriority  `json:"priority"`
	Sentiment  TicketSentiment `json:"sentiment"`
	Status     TicketStatus    `json:"status"`
	Subject    string          `json:"subject"`
	Category   string          `json:"category"`
	Assignee   string          `json:"assignee,omitempty"`
}

// IsOpenCritical reports whether the ticket is an unresolved P1 or P2.
func (t TicketRecord) IsOpenCritical() bool {
	return (t.Priority == PriorityP1 || t.Priority == PriorityP2) && t.Status != TicketResolved
}
