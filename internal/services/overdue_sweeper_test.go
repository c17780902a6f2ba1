package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"billdesk/internal/core"
)

func sweeperFixture(t *testing.T, opts SweeperOptions) (*fakeBackend, *OverdueSweeper) {
	t.Helper()
	b := newFakeBackend()
	seedInvoice(b, "i1", "INV-1", "c1", core.InvoicePending, core.NewDate(2024, 3, 1), "100")
	seedInvoice(b, "i2", "INV-2", "c1", core.InvoicePending, core.NewDate(2024, 3, 12), "80")
	seedInvoice(b, "i3", "INV-3", "c2", core.InvoicePaid, core.NewDate(2024, 1, 1), "10")
	seedInvoice(b, "i4", "INV-4", "c2", core.InvoicePending, core.NewDate(2024, 4, 1), "10")

	s := newTestSync(t, b, SyncOptions{})
	p := NewOverdueSweeper(s, opts)
	p.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return b, p
}

func TestSweepMarksPastDueInvoices(t *testing.T) {
	events := &recordingPublisher{}
	b, p := sweeperFixture(t, SweeperOptions{Events: events})

	res, err := p.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Checked != 4 || len(res.Marked) != 2 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}
	for _, id := range []string{"i1", "i2"} {
		if b.invoices[id].Status != core.InvoiceOverdue {
			t.Errorf("%s status = %s", id, b.invoices[id].Status)
		}
	}
	if b.invoices["i4"].Status != core.InvoicePending {
		t.Errorf("future invoice was marked")
	}
	if res.Notified != 2 || len(events.overdue) != 2 {
		t.Errorf("overdue notices = %v", events.overdue)
	}
}

func TestSweepGracePolicy(t *testing.T) {
	b, p := sweeperFixture(t, SweeperOptions{Checker: GraceChecker{Days: 7}})

	res, err := p.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(res.Marked) != 1 || res.Marked[0] != "INV-1" {
		t.Fatalf("marked = %v, want only INV-1", res.Marked)
	}
	if b.invoices["i2"].Status != core.InvoicePending {
		t.Errorf("invoice inside grace window was marked")
	}
}

func TestSweepDryRunChangesNothing(t *testing.T) {
	b, p := sweeperFixture(t, SweeperOptions{DryRun: true})

	res, err := p.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !res.DryRun || len(res.Marked) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if b.invoices["i1"].Status != core.InvoicePending {
		t.Errorf("dry run changed status")
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	b, p := sweeperFixture(t, SweeperOptions{})
	b.fail(http.MethodPatch, "/api/invoices/i1/status", http.StatusConflict)

	res, err := p.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "INV-1" {
		t.Errorf("failed = %v", res.Failed)
	}
	if len(res.Marked) != 1 || b.invoices["i2"].Status != core.InvoiceOverdue {
		t.Errorf("marked = %v", res.Marked)
	}
}

func TestSweepFetchFailure(t *testing.T) {
	b, p := sweeperFixture(t, SweeperOptions{})
	b.fail(http.MethodGet, "/api/invoices", http.StatusInternalServerError)

	if _, err := p.Sweep(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
}
