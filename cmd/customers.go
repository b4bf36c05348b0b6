package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List monitored customers",
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
			return err
		}

		p := message.NewPrinter(language.English)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTIER\tMONTHLY LIMIT\tACCOUNT MANAGER")
		for _, c := range customers {
			p.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Name, c.Tier, c.TierLimit, c.AccountManager)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(customersCmd)
}
