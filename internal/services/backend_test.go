package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"billdesk/internal/api"
	"billdesk/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// fakeBackend is an in-memory rendition of the billing REST surface.
type fakeBackend struct {
	mu       sync.Mutex
	invoices map[string]core.Invoice
	clients  map[string]core.Client
	payments map[string]core.Payment
	products map[string]core.Product
	// failing maps "METHOD path" to a status returned instead of the
	// normal response.
	failing map[string]int
	hits    int
	nextID  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		invoices: map[string]core.Invoice{},
		clients:  map[string]core.Client{},
		payments: map[string]core.Payment{},
		products: map[string]core.Product{},
		failing:  map[string]int{},
	}
}

func (b *fakeBackend) fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[method+" "+path] = status
}

func values[T any](m map[string]T, id func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	invID := func(v core.Invoice) string { return v.ID }

	mux.HandleFunc("GET /api/invoices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, values(b.invoices, invID))
	})
	mux.HandleFunc("GET /api/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		inv, ok := b.invoices[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Invoice not found"})
			return
		}
		writeJSON(w, http.StatusOK, inv)
	})
	mux.HandleFunc("POST /api/invoices", func(w http.ResponseWriter, r *http.Request) {
		var in core.Invoice
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.nextID++
		in.ID = fmt.Sprintf("inv-%d", b.nextID)
		b.invoices[in.ID] = in
		writeJSON(w, http.StatusCreated, in)
	})
	mux.HandleFunc("PATCH /api/invoices/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		inv, ok := b.invoices[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Invoice not found"})
			return
		}
		var body struct{ Status core.InvoiceStatus }
		_ = json.NewDecoder(r.Body).Decode(&body)
		inv.Status = body.Status
		b.invoices[inv.ID] = inv
		writeJSON(w, http.StatusOK, inv)
	})
	mux.HandleFunc("POST /api/invoices/{id}/payments", func(w http.ResponseWriter, r *http.Request) {
		inv, ok := b.invoices[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Invoice not found"})
			return
		}
		var in core.PaymentInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.nextID++
		p := core.Payment{
			ID:      fmt.Sprintf("pay-%d", b.nextID),
			Invoice: core.InvoiceRef{ID: inv.ID, InvoiceNumber: inv.InvoiceNumber, Client: inv.Client},
			Amount:  in.Amount,
			Date:    in.Date,
			Method:  in.Method,
		}
		b.payments[p.ID] = p
		inv.Payments = append(inv.Payments, core.PaymentRef{ID: p.ID, Amount: p.Amount, Date: p.Date, Method: p.Method})
		b.invoices[inv.ID] = inv
		writeJSON(w, http.StatusCreated, p)
	})
	mux.HandleFunc("GET /api/payments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, values(b.payments, func(p core.Payment) string { return p.ID }))
	})
	mux.HandleFunc("DELETE /api/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := b.payments[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Payment not found"})
			return
		}
		delete(b.payments, p.ID)
		if inv, ok := b.invoices[p.Invoice.ID]; ok {
			b.invoices[inv.ID] = inv.WithoutPayment(p.ID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, values(b.clients, func(c core.Client) string { return c.ID }))
	})
	mux.HandleFunc("GET /api/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		c, ok := b.clients[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Client not found"})
			return
		}
		writeJSON(w, http.StatusOK, c)
	})
	mux.HandleFunc("GET /api/clients/{id}/invoices", func(w http.ResponseWriter, r *http.Request) {
		var out []core.Invoice
		for _, inv := range values(b.invoices, invID) {
			if inv.Client.ID == r.PathValue("id") {
				out = append(out, inv)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/clients/{id}/payments", func(w http.ResponseWriter, r *http.Request) {
		var out []core.Payment
		for _, p := range values(b.payments, func(p core.Payment) string { return p.ID }) {
			if p.Invoice.Client.ID == r.PathValue("id") {
				out = append(out, p)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, values(b.products, func(p core.Product) string { return p.ID }))
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hits++
		if status, ok := b.failing[r.Method+" "+r.URL.Path]; ok {
			writeJSON(w, status, map[string]string{"message": "backend unavailable"})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) hitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

type staticTokens struct{}

func (staticTokens) Token(context.Context) (string, error)   { return "test-token", nil }
func (staticTokens) SaveToken(context.Context, string) error { return nil }
func (staticTokens) ClearToken(context.Context) error        { return nil }

type recordingJournal struct {
	mu      sync.Mutex
	records []core.SyncRecord
}

func (j *recordingJournal) AppendSync(_ context.Context, rec core.SyncRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []string
	overdue []string
}

func (p *recordingPublisher) PublishChange(_ context.Context, entity, id, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, entity+":"+id+":"+action)
	return nil
}

func (p *recordingPublisher) PublishOverdue(_ context.Context, inv core.Invoice, balance decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overdue = append(p.overdue, inv.InvoiceNumber+"="+balance.String())
	return nil
}

func newTestSync(t *testing.T, b *fakeBackend, opts SyncOptions) *SyncService {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	remote, err := api.New(api.Options{BaseURL: srv.URL + "/api", Tokens: staticTokens{}, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return NewSyncService(remote, opts)
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedInvoice(b *fakeBackend, id, number, clientID string, status core.InvoiceStatus, due core.Date, price string) core.Invoice {
	inv := core.Invoice{
		ID:            id,
		InvoiceNumber: number,
		Client:        core.ClientRef{ID: clientID, Name: "Client " + clientID},
		Items:         []core.InvoiceItem{{Description: "work", Quantity: 1, Price: money(price)}},
		CreatedAt:     core.NewDate(2024, 1, 10),
		DueDate:       due,
		Status:        status,
	}
	b.invoices[id] = inv
	return inv
}

var english = language.English
