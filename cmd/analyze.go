package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/revenue-sentinel/internal/pipeline"
)

var analyzeShowEvents bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <customer-id>",
	Short: "Run the health pipeline for one customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sink := &pipeline.Collector{}
		report, err := env.Pipeline.Run(ctx, args[0], sink)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if analyzeShowEvents {
			for _, event := range sink.Events() {
				fmt.Printf("-- %s\n", event.Kind)
				if err := enc.Encode(event.Payload); err != nil {
					return err
				}
			}
			return nil
		}

		return enc.Encode(report)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeShowEvents, "events", false, "print the full event stream instead of the final report")
	rootCmd.AddCommand(analyzeCmd)
}
