package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"billdesk/internal/aggregate"
	"billdesk/internal/cli"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print portfolio metrics, revenue by month and per-client totals",
	Example: `  billdesk dashboard
  billdesk dashboard --json | jq .metrics`,
	RunE: runDashboard,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Refresh every collection and write the dashboard report",
	Long: `export writes the dashboard rows to the configured report backend
(EXPORT_BACKEND=sheets writes to GOOGLE_SPREADSHEET_ID).`,
	RunE: runExport,
}

var statementCmd = &cobra.Command{
	Use:     "statement <client-id>",
	Short:   "Show what a client was billed and what they actually paid",
	Args:    cobra.ExactArgs(1),
	Example: `  billdesk statement 42`,
	RunE:    runStatement,
}

func init() {
	rootCmd.AddCommand(dashboardCmd, exportCmd, statementCmd)

	dashboardCmd.Flags().Bool("json", false, "Print the dashboard as JSON")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		if err := app.Sync.RefreshAll(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		d := app.Dashboard.Dashboard(ctx)
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		}
		return printTable(cmd.OutOrStdout(), app.Dashboard.Rows(d))
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		if app.Backends.Reports == nil {
			return fmt.Errorf("no report backend configured (set EXPORT_BACKEND)")
		}
		if err := app.Sync.RefreshAll(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		if err := app.Exporter.Export(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Report exported.")
		return nil
	})
}

func runStatement(cmd *cobra.Command, args []string) error {
	clientID := strings.TrimSpace(args[0])

	return withSession(cmd, func(ctx context.Context, app *cli.App) error {
		if err := app.Sync.Refresh(ctx, "invoices"); err != nil {
			return fmt.Errorf("refresh invoices: %w", err)
		}
		if err := app.Sync.Refresh(ctx, "payments"); err != nil {
			return fmt.Errorf("refresh payments: %w", err)
		}
		st := aggregate.ClientStatement(clientID,
			app.Sync.Invoices.State().Items,
			app.Sync.Payments.State().Items)

		return printTable(cmd.OutOrStdout(), [][]string{
			{"Client", st.ClientID},
			{"Invoices", fmt.Sprint(st.InvoiceCount)},
			{"Payments", fmt.Sprint(st.PaymentCount)},
			{"Billed", app.Format.Money(st.Billed)},
			{"Paid", app.Format.Money(st.Paid)},
			{"Outstanding", app.Format.Money(st.Outstanding)},
		})
	})
}

func printTable(out io.Writer, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}
