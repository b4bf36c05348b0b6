package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/revenue-sentinel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	ts                   DATETIME NOT NULL,
	api_calls            INTEGER NOT NULL,
	error_rate_5xx       REAL NOT NULL,
	error_rate_4xx       REAL NOT NULL,
	active_features      TEXT NOT NULL,
	tier_limit           INTEGER NOT NULL,
	tier_utilization_pct REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS support_tickets (
	id          TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL REFERENCES customers(id),
	created_at  DATETIME NOT NULL,
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
	resolve_hours   REAL NOT NULL,
	outcome         TEXT NOT NULL,
	base_similarity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_logs_customer_ts ON usage_logs(customer_id, ts);
CREATE INDEX IF NOT EXISTS idx_support_tickets_customer ON support_tickets(customer_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario
		 FROM customers WHERE id = ?`, id)

	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Tier, &c.TierLimit, &c.AccountManager, &c.ManagerHandle, &c.SalesRep, &c.Scenario)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get customer")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario
		 FROM customers ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Tier, &c.TierLimit, &c.AccountManager, &c.ManagerHandle, &c.SalesRep, &c.Scenario); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "sqlite: list customers")
}

func (s *SQLiteStore) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count customers")
}

func (s *SQLiteStore) GetUsage(ctx context.Context, customerID string) ([]model.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, ts, api_calls, error_rate_5xx, error_rate_4xx, active_features, tier_limit, tier_utilization_pct
		 FROM usage_logs WHERE customer_id = ? ORDER BY ts ASC`, customerID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get usage")
	}
	defer rows.Close()

	records := []model.UsageRecord{}
	for rows.Next() {
		var (
			r        model.UsageRecord
			ts       string
			features string
		)
		if err := rows.Scan(&r.ID, &r.CustomerID, &ts, &r.APICalls, &r.ErrorRate5xx, &r.ErrorRate4xx, &features, &r.TierLimit, &r.TierUtilizationPct); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan usage record")
		}
		if r.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse usage timestamp")
		}
		if err := json.Unmarshal([]byte(features), &r.ActiveFeatures); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal active features")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: get usage")
}

func (s *SQLiteStore) GetTickets(ctx context.Context, customerID string) ([]model.TicketRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, created_at, priority, sentiment, status, subject, category, assignee
		 FROM support_tickets WHERE customer_id = ? ORDER BY priority ASC, created_at ASC`, customerID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get tickets")
	}
	defer rows.Close()

	tickets := []model.TicketRecord{}
	for rows.Next() {
		var (
			t       model.TicketRecord
			created string
		)
		if err := rows.Scan(&t.ID, &t.CustomerID, &created, &t.Priority, &t.Sentiment, &t.Status, &t.Subject, &t.Category, &t.Assignee); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ticket")
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse ticket created_at")
		}
		tickets = append(tickets, t)
	}
	return tickets, eris.Wrap(rows.Err(), "sqlite: get tickets")
}

func (s *SQLiteStore) ListRemedies(ctx context.Context) ([]model.RemedyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, error_pattern, resolution, segment, resolve_hours, outcome, base_similarity
		 FROM remedies ORDER BY base_similarity DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list remedies")
	}
	defer rows.Close()

	var remedies []model.RemedyRecord
	for rows.Next() {
		var r model.RemedyRecord
		if err := rows.Scan(&r.ID, &r.ErrorPattern, &r.Resolution, &r.Segment, &r.ResolveHours, &r.Outcome, &r.BaseSimilarity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan remedy")
		}
		remedies = append(remedies, r)
	}
	return remedies, eris.Wrap(rows.Err(), "sqlite: list remedies")
}

func (s *SQLiteStore) Seed(ctx context.Context, corpus *Corpus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback()

	for _, table := range []string{"usage_logs", "support_tickets", "remedies", "customers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, c := range corpus.Customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (id, name, tier, tier_limit, account_manager, manager_handle, sales_rep, scenario)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Tier, c.TierLimit, c.AccountManager, c.ManagerHandle, c.SalesRep, c.Scenario); err != nil {
			return eris.Wrapf(err, "sqlite: seed customer %s", c.ID)
		}
	}

	for customerID, records := range corpus.Usage {
		for _, r := range records {
			features, err := json.Marshal(r.ActiveFeatures)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal active features")
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO usage_logs (id, customer_id, ts, api_calls, error_rate_5xx, error_rate_4xx, active_features, tier_limit, tier_utilization_pct)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, customerID, r.Timestamp.UTC().Format(time.RFC3339), r.APICalls, r.ErrorRate5xx, r.ErrorRate4xx, string(features), r.TierLimit, r.TierUtilizationPct); err != nil {
				return eris.Wrapf(err, "sqlite: seed usage for %s", customerID)
			}
		}
	}

	for customerID, tickets := range corpus.Tickets {
		for _, t := range tickets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO support_tickets (id, customer_id, created_at, priority, sentiment, status, subject, category, assignee)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, customerID, t.CreatedAt.UTC().Format(time.RFC3339), t.Priority, t.Sentiment, t.Status, t.Subject, t.Category, t.Assignee); err != nil {
				return eris.Wrapf(err, "sqlite: seed tickets for %s", customerID)
			}
		}
	}

	for _, r := range corpus.Remedies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO remedies (id, error_pattern, resolution, segment, resolve_hours, outcome, base_similarity)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.ErrorPattern, r.Resolution, r.Segment, r.ResolveHours, r.Outcome, r.BaseSimilarity); err != nil {
			return eris.Wrapf(err, "sqlite: seed remedy %s", r.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit seed")
}

var _ Store = (*SQLiteStore)(nil)
