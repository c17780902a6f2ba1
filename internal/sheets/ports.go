package sheets

import "context"

// Ports for outbound report adapters.
type (
	// ReportWriter replaces the stored report with rows.
	ReportWriter interface {
		WriteReport(ctx context.Context, rows [][]string) error
	}

	// ReportReader returns the last stored report.
	ReportReader interface {
		ReadReport(ctx context.Context) ([][]string, error)
	}
)
