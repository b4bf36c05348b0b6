package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/revenue-sentinel/internal/db"
	"github.com/sells-group/revenue-sentinel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"get_customer":   `SELECT id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario FROM customers WHERE id = $1`,
	"list_customers": `SELECT id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario FROM customers ORDER BY id`,
	"get_usage":      `SELECT id, customer_id, ts, api_calls, error_rate_5xx, error_rate_4xx, active_features, tier_limit, tier_utilization_pct FROM usage_logs WHERE customer_id = $1 ORDER BY ts ASC`,
	"get_tickets":    `SELECT id, customer_id, created_at, priority, sentiment, status, subject, category, assignee FROM support_tickets WHERE customer_id = $1 ORDER BY priority ASC, created_at ASC`,
	"list_remedies":  `SELECT id, error_pattern, resolution, segment, resolve_hours, outcome, base_similarity FROM remedies ORDER BY base_similarity DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS customers (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	tier            TEXT NOT NULL,
	tier_limit      INTEGER NOT NULL,
	account_manager TEXT NOT NULL,
	manager_handle  TEXT NOT NULL,
	sales_rep       TEXT NOT NULL,
	scenario        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS usage_logs (
	id                   TEXT PRIMARY KEY,
	customer_id          TEXT NOT NULL REFERENCES customers(id),
	ts                   TIMESTAMPTZ NOT NULL,
	api_calls            INTEGER NOT NULL,
	error_rate_5xx       DOUBLE PRECISION NOT NULL,
	error_rate_4xx       DOUBLE PRECISION NOT NULL,
	active_features      JSONB NOT NULL,
	tier_limit           INTEGER NOT NULL,
	tier_utilization_pct DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS support_tickets (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	created_at  TIMESTAMPTZ NOT NULL,
	priority    TEXT NOT NULL,
	sentiment   TEXT NOT NULL,
	status      TEXT NOT NULL,
	subject     TEXT NOT NULL,
	category    TEXT NOT NULL,
	assignee    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS remedies (
	id              TEXT PRIMARY KEY,
	error_pattern   TEXT NOT NULL,
	resolution      TEXT NOT NULL,
	segment         TEXT NOT NULL,
	resolve_hours   DOUBLE PRECISION NOT NULL,
	outcome         TEXT NOT NULL,
	base_similarity DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_logs_customer_ts ON usage_logs(customer_id, ts);
CREATE INDEX IF NOT EXISTS idx_support_tickets_customer ON support_tickets(customer_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_customer"], id)

	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Tier, &c.TierLimit, &c.AccountManager, &c.ManagerHandle, &c.SalesRep, &c.Scenario)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get customer")
	}
	return &c, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_customers"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Tier, &c.TierLimit, &c.AccountManager, &c.ManagerHandle, &c.SalesRep, &c.Scenario); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "postgres: list customers")
}

func (s *PostgresStore) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count customers")
}

func (s *PostgresStore) GetUsage(ctx context.Context, customerID string) ([]model.UsageRecord, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["get_usage"], customerID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get usage")
	}
	defer rows.Close()

	records := []model.UsageRecord{}
	for rows.Next() {
		var (
			r        model.UsageRecord
			features []byte
		)
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.Timestamp, &r.APICalls, &r.ErrorRate5xx, &r.ErrorRate4xx, &features, &r.TierLimit, &r.TierUtilizationPct); err != nil {
			return nil, eris.Wrap(err, "postgres: scan usage record")
		}
		if err := json.Unmarshal(features, &r.ActiveFeatures); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal active features")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: get usage")
}

func (s *PostgresStore) GetTickets(ctx context.Context, customerID string) ([]model.TicketRecord, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["get_tickets"], customerID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get tickets")
	}
	defer rows.Close()

	tickets := []model.TicketRecord{}
	for rows.Next() {
		var t model.TicketRecord
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.CreatedAt, &t.Priority, &t.Sentiment, &t.Status, &t.Subject, &t.Category, &t.Assignee); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ticket")
		}
		tickets = append(tickets, t)
	}
	return tickets, eris.Wrap(rows.Err(), "postgres: get tickets")
}

func (s *PostgresStore) ListRemedies(ctx context.Context) ([]model.RemedyRecord, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_remedies"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list remedies")
	}
	defer rows.Close()

	var remedies []model.RemedyRecord
	for rows.Next() {
		var r model.RemedyRecord
		if err := rows.Scan(&r.ID, &r.ErrorPattern, &r.Resolution, &r.Segment, &r.ResolveHours, &r.Outcome, &r.BaseSimilarity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan remedy")
		}
		remedies = append(remedies, r)
	}
	return remedies, eris.Wrap(rows.Err(), "postgres: list remedies")
}

// Seed replaces the full synthetic corpus. Usage rows go in via COPY since
// they are by far the largest table.
func (s *PostgresStore) Seed(ctx context.Context, corpus *Corpus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin seed")
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"usage_logs", "support_tickets", "remedies", "customers"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for _, c := range corpus.Customers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO customers (id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.Name, c.Tier, c.TierLimit, c.AccountManager, c.ManagerHandle, c.SalesRep, c.Scenario); err != nil {
			return eris.Wrapf(err, "postgres: seed customer %s", c.ID)
		}
	}

	var usageRows [][]any
	for customerID, records := range corpus.Usage {
		for _, r := range records {
			features, err := json.Marshal(r.ActiveFeatures)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal active features")
			}
			usageRows = append(usageRows, []any{
				r.ID, customerID, r.Timestamp.UTC(), r.APICalls, r.ErrorRate5xx, r.ErrorRate4xx, features, r.TierLimit, r.TierUtilizationPct,
			})
		}
	}
	if len(usageRows) > 0 {
		copySource := pgx.CopyFromRows(usageRows)
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"usage_logs"},
			[]string{"id", "customer_id", "ts", "api_calls", "error_rate_5xx", "error_rate_4xx", "active_features", "tier_limit", "tier_utilization_pct"},
			copySource); err != nil {
			return eris.Wrap(err, "postgres: copy usage logs")
		}
	}

	for customerID, tickets := range corpus.Tickets {
		for _, t := range tickets {
			if _, err := tx.Exec(ctx,
				`INSERT INTO support_tickets (id, customer_id, created_at, priority, sentiment, status, subject, category, assignee)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				t.ID, customerID, t.CreatedAt.UTC(), t.Priority, t.Sentiment, t.Status, t.Subject, t.Category, t.Assignee); err != nil {
				return eris.Wrapf(err, "postgres: seed tickets for %s", customerID)
			}
		}
	}

	for _, r := range corpus.Remedies {
		if _, err := tx.Exec(ctx,
			`INSERT INTO remedies (id, error_pattern, resolution, segment, resolve_hours, outcome, base_similarity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.ErrorPattern, r.Resolution, r.Segment, r.ResolveHours, r.Outcome, r.BaseSimilarity); err != nil {
			return eris.Wrapf(err, "postgres: seed remedy %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit seed")
}

var _ Store = (*PostgresStore)(nil)
