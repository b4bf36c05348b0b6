package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-sentinel/internal/pipeline"
	"github.com/sells-group/revenue-sentinel/internal/similarity"
	"github.com/sells-group/revenue-sentinel/internal/store"
	"github.com/sells-group/revenue-sentinel/internal/workflow"
	"github.com/sells-group/revenue-sentinel/pkg/crm"
	"github.com/sells-group/revenue-sentinel/pkg/notify"
	"github.com/sells-group/revenue-sentinel/pkg/tracker"
)

// pipelineEnv holds the initialized store, effect clients, and the pipeline
// needed by the analyze/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	default:
		return store.NewSQLite(cfg.Store.Path)
	}
}

// initCRM picks the opportunity writer: a local mock by default, Salesforce
// when configured.
func initCRM() (crm.Client, error) {
	if cfg.CRM.Provider != "salesforce" {
		return crm.NewMock(), nil
	}

	client, err := crm.NewSalesforce(crm.SalesforceCreds{
		Domain:   cfg.CRM.LoginURL,
		Username: cfg.CRM.Username,
		ClientID: cfg.CRM.ClientID,
		KeyPath:  cfg.CRM.KeyPath,
	}, crm.WithRateLimit(cfg.CRM.RateRPS))
	if err != nil {
		return nil, err
	}
	zap.L().Info("salesforce crm enabled", zap.String("username", cfg.CRM.Username))
	return client, nil
}

// initPipeline sets up the store, seeds it on first run, and builds the
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Seed the synthetic corpus on an empty store so every command works out
	// of the box.
	count, err := st.CountCustomers(ctx)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "count customers")
	}
	if count == 0 {
		corpus, err := store.BuildCorpus(time.Now())
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "build corpus")
		}
		if err := st.Seed(ctx, corpus); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "seed store")
		}
		zap.L().Info("store seeded", zap.Int("customers", len(corpus.Customers)))
	}

	crmClient, err := initCRM()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	dispatcher := workflow.New(
		tracker.NewMock(cfg.Tracker.BaseURL, cfg.Tracker.Project),
		notify.NewMock(notify.WithRateLimit(cfg.Notify.RatePerSec)),
		crmClient,
	)

	p := pipeline.New(st, similarity.New(st), dispatcher,
		pipeline.WithPace(time.Duration(cfg.Pipeline.PaceMs)*time.Millisecond))

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
