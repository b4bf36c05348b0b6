package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-sentinel/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the store and load the synthetic corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		corpus, err := store.BuildCorpus(time.Now())
		if err != nil {
			return eris.Wrap(err, "build corpus")
		}
		if err := st.Seed(ctx, corpus); err != nil {
			return eris.Wrap(err, "seed store")
		}

		zap.L().Info("store seeded",
			zap.Int("customers", len(corpus.Customers)),
			zap.Int("remedies", len(corpus.Remedies)),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
