package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billdesk/internal/aggregate"
	"billdesk/internal/core"
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Checked  int      `json:"checked"`
	Marked   []string `json:"marked"`
	Failed   []string `json:"failed"`
	Notified int      `json:"notified"`
	DryRun   bool     `json:"dryRun"`
}

// OverdueSweeper moves pending invoices past their due date to OVERDUE.
type OverdueSweeper struct {
	sync    *SyncService
	checker OverdueChecker
	events  EventPublisher
	now     func() time.Time
	dryRun  bool
}

type SweeperOptions struct {
	Checker OverdueChecker
	Events  EventPublisher
	// DryRun reports candidates without changing anything remotely.
	DryRun bool
}

func NewOverdueSweeper(sync *SyncService, opts SweeperOptions) *OverdueSweeper {
	checker := opts.Checker
	if checker == nil {
		checker = StrictChecker{}
	}
	return &OverdueSweeper{
		sync:    sync,
		checker: checker,
		events:  opts.Events,
		now:     time.Now,
		dryRun:  opts.DryRun,
	}
}

// Candidates returns the invoices the sweeper would mark right now, from
// the invoices container snapshot.
func (p *OverdueSweeper) Candidates(now time.Time) []core.Invoice {
	var out []core.Invoice
	for _, inv := range aggregate.OverdueCandidates(p.sync.Invoices.State().Items, now) {
		if p.checker.IsOverdue(inv.DueDate, now) {
			out = append(out, inv)
		}
	}
	return out
}

// Sweep refreshes invoices, marks every candidate OVERDUE and publishes a
// notice per marked invoice. One failing invoice does not stop the sweep.
func (p *OverdueSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if p.sync == nil {
		return SweepResult{}, fmt.Errorf("sweeper not properly initialized")
	}
	if err := p.sync.FetchInvoices(ctx); err != nil {
		return SweepResult{}, fmt.Errorf("fetch invoices: %w", err)
	}

	now := p.now()
	candidates := p.Candidates(now)
	res := SweepResult{
		Checked: len(p.sync.Invoices.State().Items),
		Marked:  []string{},
		Failed:  []string{},
		DryRun:  p.dryRun,
	}

	slog.InfoContext(ctx, "Sweeping overdue invoices",
		"checked", res.Checked,
		"candidates", len(candidates),
		"sweep_date", now.Format("2006-01-02"),
		"dry_run", p.dryRun)

	for _, inv := range candidates {
		if p.dryRun {
			res.Marked = append(res.Marked, inv.InvoiceNumber)
			continue
		}
		if _, err := p.sync.UpdateInvoiceStatus(ctx, inv.ID, core.InvoiceOverdue); err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice overdue",
				"invoice_id", inv.ID,
				"invoice_number", inv.InvoiceNumber,
				"error", err)
			res.Failed = append(res.Failed, inv.InvoiceNumber)
			continue
		}
		res.Marked = append(res.Marked, inv.InvoiceNumber)

		if p.events == nil {
			continue
		}
		balance := aggregate.InvoiceBalance(inv)
		if err := p.events.PublishOverdue(ctx, inv, balance); err != nil {
			slog.ErrorContext(ctx, "Failed to publish overdue notice",
				"invoice_id", inv.ID,
				"error", err)
			continue
		}
		res.Notified++
	}

	slog.InfoContext(ctx, "Overdue sweep complete",
		"marked", len(res.Marked),
		"failed", len(res.Failed),
		"notified", res.Notified)

	return res, nil
}
