// Package services orchestrates remote calls against the state containers.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billdesk/internal/api"
	"billdesk/internal/core"
	"billdesk/internal/log"
	"billdesk/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Journal records remote-sync outcomes.
type Journal interface {
	AppendSync(ctx context.Context, rec core.SyncRecord) error
}

// EventPublisher announces changes made through the service. Publishing is
// best effort: failures are logged and never fail the operation.
type EventPublisher interface {
	PublishChange(ctx context.Context, entity, id, action string) error
	PublishOverdue(ctx context.Context, inv core.Invoice, balance decimal.Decimal) error
}

// Change actions carried by published events.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionStatusChanged = "status_changed"
	ActionPaid          = "payment_recorded"
)

type SyncOptions struct {
	Schema  core.ProductSchema
	Journal Journal
	Events  EventPublisher
	Logger  *log.Logger
}

// SyncService runs every backend call through the matching state
// container, so each call is observable as pending, fulfilled or rejected.
type SyncService struct {
	remote *api.Client

	Invoices *store.Store[store.InvoicesState]
	Clients  *store.Store[store.ClientsState]
	Payments *store.Store[store.PaymentsState]
	Products *store.Store[store.ProductsState]

	schema  core.ProductSchema
	journal Journal
	events  EventPublisher
	logger  *log.Logger
	results *log.StructuredLogger
}

func NewSyncService(remote *api.Client, opts SyncOptions) *SyncService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentSync)
	}
	schema := opts.Schema
	if schema.Name == "" {
		schema = core.UpperProductSchema
	}
	return &SyncService{
		remote:   remote,
		Invoices: store.NewInvoices(),
		Clients:  store.NewClients(),
		Payments: store.NewPayments(),
		Products: store.NewProducts(),
		schema:   schema,
		journal:  opts.Journal,
		events:   opts.Events,
		logger:   logger,
		results:  log.NewStructuredLogger(logger),
	}
}

func (s *SyncService) Schema() core.ProductSchema { return s.schema }

// run executes task through st and journals the outcome.
func run[S any](ctx context.Context, s *SyncService, st *store.Store[S], op store.Op, fallback string, task store.Task) error {
	start := time.Now()
	err := store.Run(ctx, st, op, fallback, task)
	elapsed := time.Since(start)

	s.results.LogSyncResult(ctx, st.Name(), string(op), elapsed, err)
	s.journalOutcome(ctx, st.Name(), string(op), elapsed, err, fallback)
	return err
}

func (s *SyncService) journalOutcome(ctx context.Context, entity, op string, elapsed time.Duration, err error, fallback string) {
	if s.journal == nil {
		return
	}
	rec := core.SyncRecord{
		ID:       uuid.NewString(),
		Entity:   entity,
		Op:       op,
		OK:       err == nil,
		Duration: elapsed,
		At:       time.Now().UTC(),
	}
	if err != nil {
		rec.Message = store.Message(err, fallback)
	}
	if jerr := s.journal.AppendSync(ctx, rec); jerr != nil {
		s.logger.WarnContext(ctx, "Failed to journal sync outcome",
			log.FieldEntity, entity,
			log.FieldOperation, op,
			log.FieldError, jerr.Error())
	}
}

func (s *SyncService) publish(ctx context.Context, entity, id, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, entity, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity,
			"id", id,
			"action", action,
			"error", err)
	}
}

// Invoices

func (s *SyncService) FetchInvoices(ctx context.Context) error {
	return run(ctx, s, s.Invoices, store.OpFetchAll, "Failed to fetch invoices", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ListInvoices(ctx)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Invoice]{Items: items}, nil
	})
}

func (s *SyncService) FetchInvoice(ctx context.Context, id string) error {
	return run(ctx, s, s.Invoices, store.OpFetchByID, "Failed to fetch invoice", func(ctx context.Context) (store.Event, error) {
		inv, err := s.remote.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Selected[core.Invoice]{Item: inv}, nil
	})
}

func (s *SyncService) CreateInvoice(ctx context.Context, in core.Invoice) (core.Invoice, error) {
	var created core.Invoice
	err := run(ctx, s, s.Invoices, store.OpCreate, "Failed to create invoice", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate invoice: %w", err)
		}
		out, err := s.remote.CreateInvoice(ctx, in)
		if err != nil {
			return nil, err
		}
		created = out
		return store.Created[core.Invoice]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "invoice", created.ID, ActionCreated)
	}
	return created, err
}

func (s *SyncService) UpdateInvoice(ctx context.Context, id string, in core.Invoice) (core.Invoice, error) {
	var updated core.Invoice
	err := run(ctx, s, s.Invoices, store.OpUpdate, "Failed to update invoice", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate invoice: %w", err)
		}
		out, err := s.remote.UpdateInvoice(ctx, id, in)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Invoice]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "invoice", id, ActionUpdated)
	}
	return updated, err
}

func (s *SyncService) DeleteInvoice(ctx context.Context, id string) error {
	err := run(ctx, s, s.Invoices, store.OpDelete, "Failed to delete invoice", func(ctx context.Context) (store.Event, error) {
		if err := s.remote.DeleteInvoice(ctx, id); err != nil {
			return nil, err
		}
		return store.Deleted{ID: id}, nil
	})
	if err == nil {
		s.publish(ctx, "invoice", id, ActionDeleted)
	}
	return err
}

func (s *SyncService) UpdateInvoiceStatus(ctx context.Context, id string, status core.InvoiceStatus) (core.Invoice, error) {
	var updated core.Invoice
	err := run(ctx, s, s.Invoices, store.OpUpdateStatus, "Failed to update invoice status", func(ctx context.Context) (store.Event, error) {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
		}
		out, err := s.remote.UpdateInvoiceStatus(ctx, id, status)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Invoice]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "invoice", id, ActionStatusChanged)
	}
	return updated, err
}

// RecordPayment records a payment against an invoice. The created payment
// is appended to the payments container and the parent invoice is
// re-fetched, since its payment projection is owned by the backend.
func (s *SyncService) RecordPayment(ctx context.Context, invoiceID string, in core.PaymentInput) (core.Payment, error) {
	var created core.Payment
	err := run(ctx, s, s.Payments, store.OpRecordPayment, "Failed to record payment", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate payment: %w", err)
		}
		out, err := s.remote.RecordPayment(ctx, invoiceID, in)
		if err != nil {
			return nil, err
		}
		created = out
		return store.Created[core.Payment]{Item: out}, nil
	})
	if err != nil {
		return core.Payment{}, err
	}
	s.publish(ctx, "invoice", invoiceID, ActionPaid)

	err = run(ctx, s, s.Invoices, store.OpFetchByID, "Failed to refresh invoice", func(ctx context.Context) (store.Event, error) {
		inv, err := s.remote.GetInvoice(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		return store.Updated[core.Invoice]{Item: inv}, nil
	})
	return created, err
}

// FetchInvoicesByClient loads the client's invoices through the invoice
// resource into the invoices container.
func (s *SyncService) FetchInvoicesByClient(ctx context.Context, clientID string) error {
	return run(ctx, s, s.Invoices, store.OpFetchAll, "Failed to fetch invoices", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.InvoicesByClient(ctx, clientID)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Invoice]{Items: items}, nil
	})
}

// InvoicePDF downloads the rendered invoice. No container changes.
func (s *SyncService) InvoicePDF(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	pdf, err := s.remote.InvoicePDF(ctx, id)
	s.results.LogSyncResult(ctx, "invoices", "pdf", time.Since(start), err)
	s.journalOutcome(ctx, "invoices", "pdf", time.Since(start), err, "Failed to generate PDF")
	return pdf, err
}

// Clients

func (s *SyncService) FetchClients(ctx context.Context) error {
	return run(ctx, s, s.Clients, store.OpFetchAll, "Failed to fetch clients", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ListClients(ctx)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Client]{Items: items}, nil
	})
}

func (s *SyncService) FetchClient(ctx context.Context, id string) error {
	return run(ctx, s, s.Clients, store.OpFetchByID, "Failed to fetch client", func(ctx context.Context) (store.Event, error) {
		c, err := s.remote.GetClient(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Selected[core.Client]{Item: c}, nil
	})
}

// SelectClient loads a client together with its invoices and payments.
// Either all three land in the container or none does.
func (s *SyncService) SelectClient(ctx context.Context, id string) error {
	var (
		client   core.Client
		invoices []core.Invoice
		payments []core.Payment
	)
	return run(ctx, s, s.Clients, store.OpFetchByID, "Failed to fetch client", func(ctx context.Context) (store.Event, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			client, err = s.remote.GetClient(gctx, id)
			return err
		})
		g.Go(func() (err error) {
			invoices, err = s.remote.ClientInvoices(gctx, id)
			return err
		})
		g.Go(func() (err error) {
			payments, err = s.remote.ClientPayments(gctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return store.ClientSelected{Client: client, Invoices: invoices, Payments: payments}, nil
	})
}

func (s *SyncService) FetchClientInvoices(ctx context.Context, id string) error {
	return run(ctx, s, s.Clients, store.OpFetchInvoices, "Failed to fetch client invoices", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ClientInvoices(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.ClientInvoicesLoaded{Items: items}, nil
	})
}

func (s *SyncService) FetchClientPayments(ctx context.Context, id string) error {
	return run(ctx, s, s.Clients, store.OpFetchPayments, "Failed to fetch client payments", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ClientPayments(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.ClientPaymentsLoaded{Items: items}, nil
	})
}

// SearchClients replaces the client list with the backend's matches.
func (s *SyncService) SearchClients(ctx context.Context, q string) error {
	return run(ctx, s, s.Clients, store.OpFetchAll, "Failed to search clients", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.SearchClients(ctx, q)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Client]{Items: items}, nil
	})
}

func (s *SyncService) CreateClient(ctx context.Context, in core.Client) (core.Client, error) {
	var created core.Client
	err := run(ctx, s, s.Clients, store.OpCreate, "Failed to create client", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate client: %w", err)
		}
		out, err := s.remote.CreateClient(ctx, in)
		if err != nil {
			return nil, err
		}
		created = out
		return store.Created[core.Client]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "client", created.ID, ActionCreated)
	}
	return created, err
}

func (s *SyncService) UpdateClient(ctx context.Context, id string, in core.Client) (core.Client, error) {
	var updated core.Client
	err := run(ctx, s, s.Clients, store.OpUpdate, "Failed to update client", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate client: %w", err)
		}
		out, err := s.remote.UpdateClient(ctx, id, in)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Client]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "client", id, ActionUpdated)
	}
	return updated, err
}

func (s *SyncService) DeleteClient(ctx context.Context, id string) error {
	err := run(ctx, s, s.Clients, store.OpDelete, "Failed to delete client", func(ctx context.Context) (store.Event, error) {
		if err := s.remote.DeleteClient(ctx, id); err != nil {
			return nil, err
		}
		return store.Deleted{ID: id}, nil
	})
	if err == nil {
		s.publish(ctx, "client", id, ActionDeleted)
	}
	return err
}

func (s *SyncService) UpdateClientStatus(ctx context.Context, id string, status core.ClientStatus) (core.Client, error) {
	var updated core.Client
	err := run(ctx, s, s.Clients, store.OpUpdateStatus, "Failed to update client status", func(ctx context.Context) (store.Event, error) {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
		}
		out, err := s.remote.UpdateClientStatus(ctx, id, status)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Client]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "client", id, ActionStatusChanged)
	}
	return updated, err
}

// Payments

func (s *SyncService) FetchPayments(ctx context.Context) error {
	return run(ctx, s, s.Payments, store.OpFetchAll, "Failed to fetch payments", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ListPayments(ctx)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Payment]{Items: items}, nil
	})
}

func (s *SyncService) FetchPayment(ctx context.Context, id string) error {
	return run(ctx, s, s.Payments, store.OpFetchByID, "Failed to fetch payment", func(ctx context.Context) (store.Event, error) {
		p, err := s.remote.GetPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Selected[core.Payment]{Item: p}, nil
	})
}

func (s *SyncService) FetchPaymentsByInvoice(ctx context.Context, invoiceID string) error {
	return run(ctx, s, s.Payments, store.OpFetchByInvoice, "Failed to fetch invoice payments", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.PaymentsByInvoice(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Payment]{Items: items}, nil
	})
}

func (s *SyncService) CreatePayment(ctx context.Context, in core.Payment) (core.Payment, error) {
	var created core.Payment
	err := run(ctx, s, s.Payments, store.OpCreate, "Failed to create payment", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate payment: %w", err)
		}
		out, err := s.remote.CreatePayment(ctx, in)
		if err != nil {
			return nil, err
		}
		created = out
		return store.Created[core.Payment]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "payment", created.ID, ActionCreated)
	}
	return created, err
}

func (s *SyncService) UpdatePayment(ctx context.Context, id string, in core.Payment) (core.Payment, error) {
	var updated core.Payment
	err := run(ctx, s, s.Payments, store.OpUpdate, "Failed to update payment", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("validate payment: %w", err)
		}
		out, err := s.remote.UpdatePayment(ctx, id, in)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Payment]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "payment", id, ActionUpdated)
	}
	return updated, err
}

// DeletePayment removes a payment and refreshes its parent invoice. When
// the refresh fails the invoice projection is patched locally instead.
func (s *SyncService) DeletePayment(ctx context.Context, id string) error {
	invoiceID := s.paymentInvoiceID(id)
	err := run(ctx, s, s.Payments, store.OpDelete, "Failed to delete payment", func(ctx context.Context) (store.Event, error) {
		if err := s.remote.DeletePayment(ctx, id); err != nil {
			return nil, err
		}
		return store.Deleted{ID: id}, nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, "payment", id, ActionDeleted)
	if invoiceID == "" {
		invoiceID = s.invoiceCarryingPayment(id)
	}
	if invoiceID == "" {
		return nil
	}

	return run(ctx, s, s.Invoices, store.OpFetchByID, "Failed to refresh invoice", func(ctx context.Context) (store.Event, error) {
		inv, err := s.remote.GetInvoice(ctx, invoiceID)
		if err == nil {
			return store.Updated[core.Invoice]{Item: inv}, nil
		}
		local, ok := s.localInvoice(invoiceID)
		if !ok {
			return nil, err
		}
		s.logger.WarnContext(ctx, "Invoice refresh failed, dropping payment locally",
			log.FieldEntityID, invoiceID,
			log.FieldError, err.Error())
		return store.Updated[core.Invoice]{Item: local.WithoutPayment(id)}, nil
	})
}

func (s *SyncService) paymentInvoiceID(paymentID string) string {
	st := s.Payments.State()
	if st.Selected != nil && st.Selected.ID == paymentID {
		return st.Selected.Invoice.ID
	}
	for _, p := range st.Items {
		if p.ID == paymentID {
			return p.Invoice.ID
		}
	}
	return ""
}

func (s *SyncService) invoiceCarryingPayment(paymentID string) string {
	for _, inv := range s.Invoices.State().Items {
		for _, p := range inv.Payments {
			if p.ID == paymentID {
				return inv.ID
			}
		}
	}
	return ""
}

func (s *SyncService) localInvoice(id string) (core.Invoice, bool) {
	st := s.Invoices.State()
	if st.Selected != nil && st.Selected.ID == id {
		return *st.Selected, true
	}
	for _, inv := range st.Items {
		if inv.ID == id {
			return inv, true
		}
	}
	return core.Invoice{}, false
}

// Products

func (s *SyncService) FetchProducts(ctx context.Context) error {
	return run(ctx, s, s.Products, store.OpFetchAll, "Failed to fetch products", func(ctx context.Context) (store.Event, error) {
		items, err := s.remote.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		return store.Loaded[core.Product]{Items: items}, nil
	})
}

func (s *SyncService) FetchProduct(ctx context.Context, id string) error {
	return run(ctx, s, s.Products, store.OpFetchByID, "Failed to fetch product", func(ctx context.Context) (store.Event, error) {
		p, err := s.remote.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return store.Selected[core.Product]{Item: p}, nil
	})
}

func (s *SyncService) CreateProduct(ctx context.Context, in core.Product) (core.Product, error) {
	var created core.Product
	err := run(ctx, s, s.Products, store.OpCreate, "Failed to create product", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(s.schema); err != nil {
			return nil, fmt.Errorf("validate product: %w", err)
		}
		out, err := s.remote.CreateProduct(ctx, in)
		if err != nil {
			return nil, err
		}
		created = out
		return store.Created[core.Product]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "product", created.ID, ActionCreated)
	}
	return created, err
}

func (s *SyncService) UpdateProduct(ctx context.Context, id string, in core.Product) (core.Product, error) {
	var updated core.Product
	err := run(ctx, s, s.Products, store.OpUpdate, "Failed to update product", func(ctx context.Context) (store.Event, error) {
		if err := in.Validate(s.schema); err != nil {
			return nil, fmt.Errorf("validate product: %w", err)
		}
		out, err := s.remote.UpdateProduct(ctx, id, in)
		if err != nil {
			return nil, err
		}
		updated = out
		return store.Updated[core.Product]{Item: out}, nil
	})
	if err == nil {
		s.publish(ctx, "product", id, ActionUpdated)
	}
	return updated, err
}

func (s *SyncService) DeleteProduct(ctx context.Context, id string) error {
	err := run(ctx, s, s.Products, store.OpDelete, "Failed to delete product", func(ctx context.Context) (store.Event, error) {
		if err := s.remote.DeleteProduct(ctx, id); err != nil {
			return nil, err
		}
		return store.Deleted{ID: id}, nil
	})
	if err == nil {
		s.publish(ctx, "product", id, ActionDeleted)
	}
	return err
}

// Refresh re-fetches a single entity collection by name.
func (s *SyncService) Refresh(ctx context.Context, entity string) error {
	switch entity {
	case "invoice", "invoices":
		return s.FetchInvoices(ctx)
	case "client", "clients":
		return s.FetchClients(ctx)
	case "payment", "payments":
		return s.FetchPayments(ctx)
	case "product", "products":
		return s.FetchProducts(ctx)
	case "", "all":
		return s.RefreshAll(ctx)
	}
	return fmt.Errorf("unknown entity %q", entity)
}

// RefreshAll fetches every collection concurrently. Each container settles
// independently; the first error is returned.
func (s *SyncService) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchInvoices(ctx) })
	g.Go(func() error { return s.FetchClients(ctx) })
	g.Go(func() error { return s.FetchPayments(ctx) })
	g.Go(func() error { return s.FetchProducts(ctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh all: %w", err)
	}
	slog.InfoContext(ctx, "All collections refreshed",
		"invoices", len(s.Invoices.State().Items),
		"clients", len(s.Clients.State().Items),
		"payments", len(s.Payments.State().Items),
		"products", len(s.Products.State().Items))
	return nil
}
