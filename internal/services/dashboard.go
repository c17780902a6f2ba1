package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"billdesk/internal/aggregate"
	"billdesk/internal/cache"
	"billdesk/internal/core"
	"billdesk/internal/log"
	"billdesk/internal/store"

	"github.com/shopspring/decimal"
)

// Dashboard is every derived view over the current container snapshots.
type Dashboard struct {
	GeneratedAt     time.Time                              `json:"generatedAt"`
	Currency        string                                 `json:"currency"`
	Metrics         core.Metrics                           `json:"metrics"`
	Revenue         []core.MonthAmount                     `json:"revenue"`
	Clients         map[string]core.ClientSummary          `json:"clients"`
	ClientAnalytics aggregate.ClientAnalyticsResult        `json:"clientAnalytics"`
	PaymentMethods  map[core.PaymentMethod]core.CountTotal `json:"paymentMethods"`
	PaymentStatuses map[core.PaymentStatus]core.CountTotal `json:"paymentStatuses"`
	PaymentTrends   []aggregate.MonthTrend                 `json:"paymentTrends"`
	Invoices        aggregate.InvoiceStatistics            `json:"invoices"`
	Overpaid        []aggregate.InvoicePayments            `json:"overpaid"`
	RecentPayments  []core.Payment                         `json:"recentPayments"`
	Products        map[string]aggregate.ProductSales      `json:"products"`
}

// DashboardService computes dashboards from a SyncService's containers and
// memoizes them until any container changes.
type DashboardService struct {
	sync       *SyncService
	format     *core.Formatter
	cache      *cache.LRUCache[Dashboard]
	recentDays int
	now        func() time.Time
	logger     *log.Logger
	unwatch    []func()
}

type DashboardOptions struct {
	Formatter  *core.Formatter
	CacheSize  int
	CacheTTL   time.Duration
	RecentDays int
	Logger     *log.Logger
}

func NewDashboardService(sync *SyncService, opts DashboardOptions) *DashboardService {
	size := opts.CacheSize
	if size <= 0 {
		size = 16
	}
	days := opts.RecentDays
	if days <= 0 {
		days = 30
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentDashboard)
	}
	s := &DashboardService{
		sync:       sync,
		format:     opts.Formatter,
		cache:      cache.NewLRUCache[Dashboard](size, opts.CacheTTL),
		recentDays: days,
		now:        time.Now,
		logger:     logger,
	}
	s.unwatch = []func(){
		sync.Invoices.Subscribe(func(store.InvoicesState) { s.cache.Clear() }),
		sync.Clients.Subscribe(func(store.ClientsState) { s.cache.Clear() }),
		sync.Payments.Subscribe(func(store.PaymentsState) { s.cache.Clear() }),
		sync.Products.Subscribe(func(store.ProductsState) { s.cache.Clear() }),
	}
	return s
}

// Close stops dropping memoized dashboards on container changes.
func (s *DashboardService) Close() {
	for _, cancel := range s.unwatch {
		cancel()
	}
	s.unwatch = nil
}

// Cache exposes the memo cache for registration with a cache.Manager.
func (s *DashboardService) Cache() *cache.LRUCache[Dashboard] { return s.cache }

// key changes whenever a container changes or the day rolls over, since
// the recent-payments window is relative to now.
func (s *DashboardService) key(now time.Time) string {
	return fmt.Sprintf("%d/%d/%d/%d/%s",
		s.sync.Invoices.Version(),
		s.sync.Clients.Version(),
		s.sync.Payments.Version(),
		s.sync.Products.Version(),
		now.UTC().Format("2006-01-02"))
}

// Dashboard returns the dashboard for the current snapshots.
func (s *DashboardService) Dashboard(ctx context.Context) Dashboard {
	now := s.now()
	key := s.key(now)
	return s.cache.GetOrCompute(key, func() Dashboard {
		start := time.Now()
		d := s.compute(now)
		s.logger.DebugContext(ctx, "Dashboard computed",
			log.FieldVersion, key,
			log.FieldDuration, time.Since(start).Milliseconds())
		return d
	})
}

func (s *DashboardService) compute(now time.Time) Dashboard {
	invoices := s.sync.Invoices.State().Items
	clients := s.sync.Clients.State().Items
	payments := s.sync.Payments.State().Items
	products := s.sync.Products.State().Items

	d := Dashboard{
		GeneratedAt:     now.UTC(),
		Metrics:         aggregate.PortfolioMetrics(invoices, payments, clients),
		Revenue:         aggregate.RevenueByMonth(invoices),
		Clients:         aggregate.ClientRollup(invoices),
		ClientAnalytics: aggregate.ClientAnalytics(clients),
		PaymentMethods:  aggregate.PaymentMethodStats(payments),
		PaymentStatuses: aggregate.PaymentStatusStats(payments),
		PaymentTrends:   aggregate.PaymentTrendsByMonth(payments),
		Invoices:        aggregate.InvoiceStats(invoices),
		Overpaid:        aggregate.OverpaidInvoices(invoices),
		RecentPayments:  aggregate.RecentPayments(payments, now, s.recentDays),
		Products:        aggregate.ProductRollup(invoices),
	}
	if s.format != nil {
		d.Currency = s.format.Currency()
	}
	if len(products) > 0 {
		names := make(map[string]string, len(products))
		for _, p := range products {
			names[p.ID] = p.Name
		}
		for id, sales := range d.Products {
			if n, ok := names[id]; ok && sales.Name == "" {
				sales.Name = n
				d.Products[id] = sales
			}
		}
	}
	return d
}

// Rows renders the dashboard as a flat sheet of display strings, header
// first. Money and dates go through the configured formatter.
func (s *DashboardService) Rows(d Dashboard) [][]string {
	money := func(v decimal.Decimal) string { return v.StringFixed(2) }
	if s.format != nil {
		money = s.format.Money
	}

	rows := [][]string{
		{"Section", "Key", "Count", "Amount"},
		{"metrics", "revenue", "", money(d.Metrics.TotalRevenue)},
		{"metrics", "paid", "", money(d.Metrics.TotalPaid)},
		{"metrics", "outstanding", "", money(d.Metrics.TotalOutstanding)},
		{"metrics", "clients", strconv.Itoa(d.Metrics.TotalClients), ""},
	}
	for _, m := range d.Revenue {
		rows = append(rows, []string{"revenue", m.Month, "", money(m.Amount)})
	}
	for _, st := range core.InvoiceStatuses {
		ct := d.Invoices.ByStatus[st]
		rows = append(rows, []string{"invoices", string(st), strconv.Itoa(ct.Count), money(ct.Total)})
	}
	for _, m := range core.PaymentMethods {
		ct := d.PaymentMethods[m]
		rows = append(rows, []string{"payment_methods", string(m), strconv.Itoa(ct.Count), money(ct.Total)})
	}

	ids := make([]string, 0, len(d.Clients))
	for id := range d.Clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return d.Clients[ids[i]].ClientName < d.Clients[ids[j]].ClientName })
	for _, id := range ids {
		c := d.Clients[id]
		rows = append(rows, []string{"clients", c.ClientName, strconv.Itoa(c.InvoiceCount), money(c.TotalAmount)})
	}
	for _, o := range d.Overpaid {
		rows = append(rows, []string{"overpaid", o.InvoiceNumber, "", money(o.Excess())})
	}
	return rows
}
