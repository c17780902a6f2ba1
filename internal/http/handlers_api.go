package http

import (
	"errors"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"billdesk/internal/api"
	"billdesk/internal/core"
	"billdesk/internal/log"
	"billdesk/internal/query"
	"billdesk/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// listResponse is the envelope for every collection endpoint. Total counts
// the container before filtering.
type listResponse[T any] struct {
	Items   []T        `json:"items"`
	Count   int        `json:"count"`
	Total   int        `json:"total"`
	Sort    query.Sort `json:"sort"`
	Loading bool       `json:"loading"`
	Error   string     `json:"error,omitempty"`
}

type amountRow struct {
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

type revenueMonth struct {
	Month string `json:"month"`
	amountRow
}

type clientRollupRow struct {
	ClientID string `json:"clientId"`
	core.ClientSummary
	Outstanding string `json:"outstanding"`
}

type methodRow struct {
	Method core.PaymentMethod `json:"method"`
	Count  int                `json:"count"`
	amountRow
}

func (s *Server) tag() language.Tag {
	if s.format == nil {
		return language.English
	}
	return s.format.Tag()
}

func (s *Server) money(v decimal.Decimal) amountRow {
	display := v.StringFixed(2)
	if s.format != nil {
		display = s.format.Money(v)
	}
	return amountRow{Amount: v, Display: display}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.dashboard.Dashboard(r.Context())).Write(w)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard.Dashboard(r.Context())
	months := make([]revenueMonth, 0, len(d.Revenue))
	for _, m := range d.Revenue {
		months = append(months, revenueMonth{Month: m.Month, amountRow: s.money(m.Amount)})
	}
	NewJSONResponse().Body(map[string]any{
		"currency": d.Currency,
		"months":   months,
	}).Write(w)
}

// handleClientRollup lists clients by billed total, largest first.
func (s *Server) handleClientRollup(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard.Dashboard(r.Context())
	rows := make([]clientRollupRow, 0, len(d.Clients))
	for id, sum := range d.Clients {
		rows = append(rows, clientRollupRow{
			ClientID:      id,
			ClientSummary: sum,
			Outstanding:   s.money(sum.TotalAmount.Sub(sum.PaidAmount)).Display,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].TotalAmount.Cmp(rows[j].TotalAmount); c != 0 {
			return c > 0
		}
		return rows[i].ClientID < rows[j].ClientID
	})
	NewJSONResponse().Body(map[string]any{
		"currency": d.Currency,
		"clients":  rows,
	}).Write(w)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard.Dashboard(r.Context())
	rows := make([]methodRow, 0, len(core.PaymentMethods))
	for _, m := range core.PaymentMethods {
		ct := d.PaymentMethods[m]
		rows = append(rows, methodRow{Method: m, Count: ct.Count, amountRow: s.money(ct.Total)})
	}
	NewJSONResponse().Body(map[string]any{
		"currency": d.Currency,
		"methods":  rows,
	}).Write(w)
}

// List handlers filter a copy of the container snapshot. Without a sort
// parameter the container's own sort applies.
func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ferr := ParseInvoiceFilters(q)
	srt, serr := ParseSort(q, query.InvoiceFields.Names())
	if err := errors.Join(ferr, serr); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	st := s.sync.Invoices.State()
	st.Filters = f
	if q.Has("sort") {
		st.Sort = srt
	}
	writeList(w, store.VisibleInvoices(st, s.tag()), len(st.Items), st.Sort, st.Loading, st.Error)
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ferr := ParseClientFilters(q)
	srt, serr := ParseSort(q, query.ClientFields.Names())
	if err := errors.Join(ferr, serr); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	st := s.sync.Clients.State()
	st.Filters = f
	if q.Has("sort") {
		st.Sort = srt
	}
	writeList(w, store.VisibleClients(st, s.tag()), len(st.Items), st.Sort, st.Loading, st.Error)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ferr := ParsePaymentFilters(q)
	srt, serr := ParseSort(q, query.PaymentFields.Names())
	if err := errors.Join(ferr, serr); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	st := s.sync.Payments.State()
	st.Filters = f
	if q.Has("sort") {
		st.Sort = srt
	}
	writeList(w, store.VisiblePayments(st, s.tag()), len(st.Items), st.Sort, st.Loading, st.Error)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ferr := ParseProductFilters(q, s.sync.Schema())
	srt, serr := ParseSort(q, query.ProductFields.Names())
	if err := errors.Join(ferr, serr); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	st := s.sync.Products.State()
	st.Filters = f
	if q.Has("sort") {
		st.Sort = srt
	}
	writeList(w, store.VisibleProducts(st, s.tag()), len(st.Items), st.Sort, st.Loading, st.Error)
}

func writeList[T any](w http.ResponseWriter, items []T, total int, srt query.Sort, loading bool, errMsg string) {
	if items == nil {
		items = []T{}
	}
	NewJSONResponse().Body(listResponse[T]{
		Items:   items,
		Count:   len(items),
		Total:   total,
		Sort:    srt,
		Loading: loading,
		Error:   errMsg,
	}).Write(w)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		ErrorResponse(http.StatusNotFound, "Sync journal is not configured").Write(w)
		return
	}
	q := r.URL.Query()
	limit, err := ParseLimit(q, 50)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	recs, err := s.state.ListSync(r.Context(), strings.TrimSpace(q.Get("entity")), limit)
	if err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Failed to read sync journal", err, "list_journal", log.ErrorTypeDatabase, nil)
		InternalServerError("Failed to read sync journal").Write(w)
		return
	}
	if recs == nil {
		recs = []core.SyncRecord{}
	}
	NewJSONResponse().Body(map[string]any{"records": recs, "count": len(recs)}).Write(w)
}

var refreshable = []string{"", "all", "invoices", "clients", "payments", "products"}

// handleRefresh re-fetches one collection, or all when entity is empty.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	entity := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("entity")))
	if !slices.Contains(refreshable, entity) {
		BadRequestError("entity: want one of invoices, clients, payments, products or all").Write(w)
		return
	}

	start := time.Now()
	err := s.sync.Refresh(r.Context(), entity)
	switch {
	case errors.Is(err, api.ErrNotAuthenticated):
		ErrorResponse(http.StatusUnauthorized, store.Message(err, "Not authenticated")).Write(w)
		return
	case err != nil:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Refresh failed", err, "refresh", log.ErrorTypeNetwork, log.NewFields().WithEntity(entity, ""))
		BadGatewayError(store.Message(err, "Refresh failed")).Write(w)
		return
	}

	if entity == "" {
		entity = "all"
	}
	NewJSONResponse().Body(map[string]any{
		"entity":     entity,
		"durationMs": time.Since(start).Milliseconds(),
		"counts": map[string]int{
			"invoices": len(s.sync.Invoices.State().Items),
			"clients":  len(s.sync.Clients.State().Items),
			"payments": len(s.sync.Payments.State().Items),
			"products": len(s.sync.Products.State().Items),
		},
	}).Write(w)
}
