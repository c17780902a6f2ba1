package services

import (
	"context"
	"fmt"
	"log/slog"
)

// ReportWriter stores a rendered report somewhere outside the process.
type ReportWriter interface {
	WriteReport(ctx context.Context, rows [][]string) error
}

// ReportExporter renders the current dashboard and hands it to a writer.
type ReportExporter struct {
	dashboard *DashboardService
	writer    ReportWriter
}

func NewReportExporter(dashboard *DashboardService, writer ReportWriter) *ReportExporter {
	return &ReportExporter{dashboard: dashboard, writer: writer}
}

func (e *ReportExporter) Export(ctx context.Context) error {
	if e.writer == nil {
		return fmt.Errorf("no report writer configured")
	}
	rows := e.dashboard.Rows(e.dashboard.Dashboard(ctx))
	if err := e.writer.WriteReport(ctx, rows); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.InfoContext(ctx, "Dashboard report exported", "rows", len(rows))
	return nil
}
