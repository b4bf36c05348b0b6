package main

import (
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/revenue-sentinel/internal/pipeline"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the health pipeline for every customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customers, err := env.Store.ListCustomers(ctx)
		if err != nil {
			return eris.Wrap(err, "list customers")
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		zap.L().Info("processing batch",
			zap.Int("customers", len(customers)),
			zap.Int("concurrency", concurrency),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var succeeded, failed atomic.Int64

		for _, customer := range customers {
			g.Go(func() error {
				log := zap.L().With(zap.String("customer_id", customer.ID))

				report, err := env.Pipeline.Run(gctx, customer.ID, &pipeline.Collector{})
				if err != nil {
					failed.Add(1)
					log.Error("analysis failed", zap.Error(err))
					return nil // don't abort the batch on individual failure
				}

				succeeded.Add(1)
				log.Info("analysis complete",
					zap.String("report_type", string(report.Type)),
					zap.String("signal", report.SignalDetected.Description),
				)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch processing")
		}

		zap.L().Info("batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent analyses (default from config)")
	rootCmd.AddCommand(batchCmd)
}
