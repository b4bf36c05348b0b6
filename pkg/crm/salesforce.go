package crm

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// SalesforceCreds holds the JWT bearer-flow credentials.
type SalesforceCreds struct {
	Domain   string
	Username string
	ClientID string
	KeyPath  string
}

// SalesforceOption configures the Salesforce client.
type SalesforceOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for SF API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) SalesforceOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept
// context.Context, so the SF call itself ignores ctx. The rate limiter wait
// does honor it, so callers can still cancel there.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
	now     func() time.Time
}

// NewSalesforce authenticates via the JWT bearer flow and returns a Client
// that writes real Opportunity records.
func NewSalesforce(creds SalesforceCreds, opts ...SalesforceOption) (Client, error) {
	pem, err := os.ReadFile(creds.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "crm: read salesforce key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         creds.Domain,
		Username:       creds.Username,
		ConsumerKey:    creds.ClientID,
		ConsumerRSAPem: string(pem),
	})
	if err != nil {
		return nil, eris.Wrap(err, "crm: salesforce auth")
	}

	c := &sfClient{sf: sf, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) CreateOpportunity(ctx context.Context, req OpportunityRequest) (*Opportunity, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crm: rate limit")
	}

	record := map[string]any{
		"Name":        req.Name,
		"Type":        req.Type,
		"StageName":   "Qualification",
		"Amount":      req.EstimatedARR,
		"Probability": req.Probability,
		"CloseDate":   req.CloseDate.Format("2006-01-02"),
		"Description": req.CustomerName + ": " + req.CurrentTier + " to " + req.ProposedTier,
	}

	result, err := c.sf.InsertOne("Opportunity", record)
	if err != nil {
		return nil, eris.Wrap(err, "crm: insert opportunity")
	}
	if !result.Success {
		return nil, eris.Errorf("crm: insert opportunity failed: %v", result.Errors)
	}

	return &Opportunity{
		ID:           result.Id,
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
	}, nil
}
