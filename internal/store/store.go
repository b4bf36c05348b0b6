// Package store provides read access to customer telemetry: usage records,
// support tickets, and the remedy corpus. The pipeline treats it as a
// read-only collaborator; writes happen only through seeding.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

// ErrNotFound is returned when a customer id is unknown.
var ErrNotFound = eris.New("store: not found")

// Corpus is a full synthetic dataset for seeding.
type Corpus struct {
	Customers []model.Customer
	Usage     map[string][]model.UsageRecord  // keyed by customer id, oldest first
	Tickets   map[string][]model.TicketRecord // keyed by customer id
	Remedies  []model.RemedyRecord
}

// Store defines the telemetry access interface for the pipeline.
type Store interface {
	// Customers
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	CountCustomers(ctx context.Context) (int, error)

	// Telemetry. Both return empty slices for unknown customers; usage is
	// always ordered oldest to newest.
	GetUsage(ctx context.Context, customerID string) ([]model.UsageRecord, error)
	GetTickets(ctx context.Context, customerID string) ([]model.TicketRecord, error)

	// Remedy corpus
	ListRemedies(ctx context.Context) ([]model.RemedyRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Seed(ctx context.Context, corpus *Corpus) error
	Close() error
}
