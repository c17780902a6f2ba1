package main

import (
	"context"
	"fmt"
	"time"

	"billdesk/internal/cli"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Show recent remote-sync outcomes from the local journal",
	Example: `  billdesk history --entity invoices --limit 20`,
	RunE:    runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("entity", "", "Only show one collection (invoices, clients, payments, products)")
	historyCmd.Flags().Int("limit", 25, "Maximum records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	entity, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		recs, err := app.Backends.State.ListSync(ctx, entity, limit)
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sync history.")
			return nil
		}
		rows := [][]string{{"When", "Entity", "Op", "Outcome", "Duration"}}
		for _, r := range recs {
			outcome := "ok"
			if !r.OK {
				outcome = "failed: " + r.Message
			}
			rows = append(rows, []string{
				r.At.Local().Format(time.DateTime),
				r.Entity,
				r.Op,
				outcome,
				r.Duration.Round(time.Millisecond).String(),
			})
		}
		return printTable(cmd.OutOrStdout(), rows)
	})
}
