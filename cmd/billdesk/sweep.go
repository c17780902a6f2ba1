package main

import (
	"context"
	"fmt"
	"strings"

	"billdesk/internal/cli"
	"billdesk/internal/services"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Mark pending invoices past their due date as overdue",
	Long: `sweep-overdue refreshes invoices and moves every pending invoice the
configured policy (SWEEP_POLICY, SWEEP_GRACE_DAYS) considers late to OVERDUE.
With --dry-run nothing is changed remotely.`,
	Example: `  billdesk sweep-overdue --dry-run`,
	RunE:    runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Bool("dry-run", false, "List candidates without updating them")
}

func runSweep(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		sweeper := app.Sweeper
		if dryRun && !app.Config.SweepDryRun {
			checker, err := services.GetOverdueChecker(app.Config.SweepPolicy, app.Config.SweepGraceDays)
			if err != nil {
				return err
			}
			sweeper = services.NewOverdueSweeper(app.Sync, services.SweeperOptions{Checker: checker, DryRun: true})
		}

		if err := app.Sync.Refresh(ctx, "invoices"); err != nil {
			return fmt.Errorf("refresh invoices: %w", err)
		}
		res, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		verb := "Marked"
		if res.DryRun {
			verb = "Would mark"
		}
		fmt.Fprintf(out, "Checked %d invoices. %s %d overdue.\n", res.Checked, verb, len(res.Marked))
		if len(res.Marked) > 0 {
			fmt.Fprintf(out, "  %s\n", strings.Join(res.Marked, ", "))
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d invoices could not be updated: %s", len(res.Failed), strings.Join(res.Failed, ", "))
		}
		return nil
	})
}
