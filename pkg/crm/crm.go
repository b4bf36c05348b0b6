// Package crm abstracts the CRM opportunity write performed by the expansion
// workflow. The mock client synthesizes records locally; the salesforce
// client writes real Opportunity records.
package crm

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OpportunityRequest describes the opportunity to create.
type OpportunityRequest struct {
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	CurrentTier  string    `json:"current_tier"`
	ProposedTier string    `json:"proposed_tier"`
	EstimatedARR int       `json:"estimated_arr"`
	Probability  int       `json:"probability"`
	CloseDate    time.Time `json:"close_date"`
	Owner        string    `json:"owner"`
}

// Opportunity is the created record. Synthesized is true for mock-created
// opportunities so downstream consumers can always tell them apart.
type Opportunity struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Stage        string    `json:"stage"`
	CurrentTier  string    `json:"current_tier"`
	ProposedTier string    `json:"proposed_tier"`
	EstimatedARR int       `json:"estimated_arr"`
	Probability  int       `json:"probability"`
	CloseDate    time.Time `json:"close_date"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
	Synthesized  bool      `json:"synthesized"`
}

// Client creates opportunities in the CRM.
type Client interface {
	CreateOpportunity(ctx context.Context, req OpportunityRequest) (*Opportunity, error)
}

type mockClient struct {
	now   func() time.Time
	newID func() string
}

// MockOption configures the mock client.
type MockOption func(*mockClient)

// WithClock overrides the mock's clock, for deterministic tests.
func WithClock(now func() time.Time) MockOption {
	return func(c *mockClient) { c.now = now }
}

// WithIDSource overrides the mock's opportunity-id source.
func WithIDSource(newID func() string) MockOption {
	return func(c *mockClient) { c.newID = newID }
}

// NewMock returns a Client that synthesizes opportunities without any
// network calls.
func NewMock(opts ...MockOption) Client {
	c := &mockClient{
		now:   time.Now,
		newID: func() string { return "OPP-" + strings.ToUpper(uuid.NewString()[:8]) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *mockClient) CreateOpportunity(ctx context.Context, req OpportunityRequest) (*Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Opportunity{
		ID:           c.newID(),
		CustomerID:   req.CustomerID,
		Name:         req.Name,
		Type:         req.Type,
		Stage:        "Qualification",
		CurrentTier:  req.CurrentTier,
		ProposedTier: req.ProposedTier,
		EstimatedARR: req.EstimatedARR,
		Probability:  req.Probability,
		CloseDate:    req.CloseDate,
		Owner:        req.Owner,
		CreatedAt:    c.now().UTC(),
		Synthesized:  true,
	}, nil
}
