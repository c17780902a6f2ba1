// Package worker re-syncs local state when change events arrive from the
// broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billdesk/internal/amqp"
	"billdesk/internal/api"
	"billdesk/internal/services"
)

// Exporter publishes the current dashboard report.
type Exporter interface {
	Export(ctx context.Context) error
}

// JournalPruner drops journal entries past their retention.
type JournalPruner interface {
	PruneSync(ctx context.Context, age time.Duration) (int64, error)
}

// Refresher re-fetches one named collection.
type Refresher interface {
	Refresh(ctx context.Context, entity string) error
	RefreshAll(ctx context.Context) error
}

var _ Refresher = (*services.SyncService)(nil)

// SyncWorker turns change events into collection refreshes followed by a
// report export.
type SyncWorker struct {
	sync     Refresher
	exporter Exporter
	pruner   JournalPruner
}

// NewSyncWorker wires a worker. exporter and pruner may be nil.
func NewSyncWorker(sync Refresher, exporter Exporter, pruner JournalPruner) *SyncWorker {
	return &SyncWorker{
		sync:     sync,
		exporter: exporter,
		pruner:   pruner,
	}
}

// affected lists the collections a change to entity can alter. Payments are
// embedded in invoices, so a payment change refreshes both.
func affected(entity string) ([]string, bool) {
	switch entity {
	case "invoice", "invoices":
		return []string{"invoices"}, true
	case "payment", "payments":
		return []string{"payments", "invoices"}, true
	case "client", "clients":
		return []string{"clients"}, true
	case "product", "products":
		return []string{"products"}, true
	case "", "all":
		return []string{"all"}, true
	}
	return nil, false
}

// HandleChange processes a single change event from AMQP. Unknown entities
// are acknowledged and skipped.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeEvent) error {
	slog.InfoContext(ctx, "Processing change event",
		"event_id", msg.ID,
		"entity", msg.Entity,
		"entity_id", msg.EntityID,
		"action", msg.Action)

	entities, ok := affected(msg.Entity)
	if !ok {
		slog.WarnContext(ctx, "Skipping change event for unknown entity",
			"event_id", msg.ID,
			"entity", msg.Entity)
		return nil
	}

	for _, entity := range entities {
		err := w.sync.Refresh(ctx, entity)
		if errors.Is(err, api.ErrNotAuthenticated) {
			// Redelivery cannot succeed until someone logs in again.
			slog.ErrorContext(ctx, "Dropping change event, backend session is not usable",
				"event_id", msg.ID,
				"error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("refresh %s: %w", entity, err)
		}
	}

	if err := w.export(ctx); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Change event applied",
		"event_id", msg.ID,
		"refreshed", entities)
	return nil
}

// StartupSync loads every collection once and exports the report, so the
// sheet is current before the first event arrives.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting startup sync")
	if err := w.sync.RefreshAll(ctx); err != nil {
		return fmt.Errorf("startup refresh: %w", err)
	}
	if err := w.export(ctx); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Startup sync completed")
	return nil
}

// PruneJournal removes journal entries older than retention.
func (w *SyncWorker) PruneJournal(ctx context.Context, retention time.Duration) error {
	if w.pruner == nil || retention <= 0 {
		return nil
	}
	removed, err := w.pruner.PruneSync(ctx, retention)
	if err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}
	slog.InfoContext(ctx, "Journal pruned", "removed", removed, "retention", retention)
	return nil
}

// PeriodicPrune prunes the journal every interval until ctx is done.
func (w *SyncWorker) PeriodicPrune(ctx context.Context, interval, retention time.Duration) {
	if w.pruner == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.PruneJournal(ctx, retention); err != nil {
				slog.ErrorContext(ctx, "Periodic journal prune failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) export(ctx context.Context) error {
	if w.exporter == nil {
		return nil
	}
	if err := w.exporter.Export(ctx); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}
