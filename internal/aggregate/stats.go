package aggregate

import (
	"sort"
	"time"

	"billdesk/internal/core"

	"github.com/shopspring/decimal"
)

// StatusUnspecified buckets payments whose backend reported no status.
const StatusUnspecified core.PaymentStatus = "UNSPECIFIED"

// Statement is a client's position computed from actual payment records.
type Statement struct {
	ClientID     string          `json:"clientId"`
	InvoiceCount int             `json:"invoiceCount"`
	PaymentCount int             `json:"paymentCount"`
	Billed       decimal.Decimal `json:"billed"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// ClientStatement sums the client's invoice totals and the payments whose
// invoice belongs to the client. Unlike ClientRollup, paid is what was
// actually received, not what the invoice status claims.
func ClientStatement(clientID string, invoices []core.Invoice, payments []core.Payment) Statement {
	st := Statement{ClientID: clientID, Billed: decimal.Zero, Paid: decimal.Zero}
	for _, inv := range invoices {
		if inv.Client.ID != clientID {
			continue
		}
		st.InvoiceCount++
		st.Billed = st.Billed.Add(InvoiceTotal(inv))
	}
	for _, p := range payments {
		if p.Invoice.Client.ID != clientID {
			continue
		}
		st.PaymentCount++
		st.Paid = st.Paid.Add(p.Amount)
	}
	st.Outstanding = st.Billed.Sub(st.Paid)
	return st
}

// InvoiceStatistics counts and sums invoices per status.
type InvoiceStatistics struct {
	Count    int                                    `json:"count"`
	Total    decimal.Decimal                        `json:"total"`
	ByStatus map[core.InvoiceStatus]core.CountTotal `json:"byStatus"`
}

func InvoiceStats(invoices []core.Invoice) InvoiceStatistics {
	st := InvoiceStatistics{
		Total:    decimal.Zero,
		ByStatus: make(map[core.InvoiceStatus]core.CountTotal, len(core.InvoiceStatuses)),
	}
	for _, s := range core.InvoiceStatuses {
		st.ByStatus[s] = core.CountTotal{Total: decimal.Zero}
	}
	for _, inv := range invoices {
		total := InvoiceTotal(inv)
		st.Count++
		st.Total = st.Total.Add(total)
		ct := st.ByStatus[inv.Status]
		ct.Count++
		ct.Total = ct.Total.Add(total)
		st.ByStatus[inv.Status] = ct
	}
	return st
}

type ClientAnalyticsResult struct {
	TotalClients       int                       `json:"totalClients"`
	ByStatus           map[core.ClientStatus]int `json:"byStatus"`
	ByCountry          map[string]int            `json:"byCountry"`
	TotalCreditLimit   decimal.Decimal           `json:"totalCreditLimit"`
	AverageCreditLimit decimal.Decimal           `json:"averageCreditLimit"`
}

// ClientAnalytics profiles the client base. The credit limit average is
// taken over clients that have a positive limit.
func ClientAnalytics(clients []core.Client) ClientAnalyticsResult {
	res := ClientAnalyticsResult{
		TotalClients:       len(clients),
		ByStatus:           make(map[core.ClientStatus]int, len(core.ClientStatuses)),
		ByCountry:          make(map[string]int),
		TotalCreditLimit:   decimal.Zero,
		AverageCreditLimit: decimal.Zero,
	}
	for _, s := range core.ClientStatuses {
		res.ByStatus[s] = 0
	}
	withLimit := 0
	for _, c := range clients {
		res.ByStatus[c.Status]++
		res.ByCountry[c.Address.Country]++
		if c.CreditLimit != nil && c.CreditLimit.IsPositive() {
			res.TotalCreditLimit = res.TotalCreditLimit.Add(*c.CreditLimit)
			withLimit++
		}
	}
	if withLimit > 0 {
		res.AverageCreditLimit = res.TotalCreditLimit.DivRound(decimal.NewFromInt(int64(withLimit)), 2)
	}
	return res
}

// PaymentStatusStats counts and sums payments per status, seeded with every
// known status plus StatusUnspecified.
func PaymentStatusStats(payments []core.Payment) map[core.PaymentStatus]core.CountTotal {
	out := make(map[core.PaymentStatus]core.CountTotal, len(core.PaymentStatuses)+1)
	for _, s := range core.PaymentStatuses {
		out[s] = core.CountTotal{Total: decimal.Zero}
	}
	out[StatusUnspecified] = core.CountTotal{Total: decimal.Zero}
	for _, p := range payments {
		key := p.Status
		if key == "" {
			key = StatusUnspecified
		}
		ct := out[key]
		ct.Count++
		ct.Total = ct.Total.Add(p.Amount)
		out[key] = ct
	}
	return out
}

type MonthTrend struct {
	Month string `json:"month"`
	core.CountTotal
}

// PaymentTrendsByMonth buckets payments by YYYY-MM of the payment date,
// newest month first. Undated payments are skipped.
func PaymentTrendsByMonth(payments []core.Payment) []MonthTrend {
	buckets := make(map[string]core.CountTotal)
	for _, p := range payments {
		if p.Date.IsZero() {
			continue
		}
		key := p.Date.MonthKey()
		ct := buckets[key]
		ct.Count++
		ct.Total = ct.Total.Add(p.Amount)
		buckets[key] = ct
	}
	out := make([]MonthTrend, 0, len(buckets))
	for month, ct := range buckets {
		out = append(out, MonthTrend{Month: month, CountTotal: ct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out
}

// InvoicePayments is the payment position of one invoice: its computed
// total against the payments attached to it.
type InvoicePayments struct {
	InvoiceID     string          `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceTotal  decimal.Decimal `json:"invoiceTotal"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
}

// Excess is the amount paid beyond the invoice total; negative while
// the invoice is still open.
func (ip InvoicePayments) Excess() decimal.Decimal {
	return ip.TotalPaid.Sub(ip.InvoiceTotal)
}

// OverpaidInvoices lists invoices whose balance is negative, ordered by
// invoice number. Totals are recomputed from items; overpayment is
// reported, never clamped.
func OverpaidInvoices(invoices []core.Invoice) []InvoicePayments {
	var out []InvoicePayments
	for _, inv := range invoices {
		if !InvoiceBalance(inv).IsNegative() {
			continue
		}
		out = append(out, InvoicePayments{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceTotal:  InvoiceTotal(inv),
			TotalPaid:     InvoicePaid(inv),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InvoiceNumber != out[j].InvoiceNumber {
			return out[i].InvoiceNumber < out[j].InvoiceNumber
		}
		return out[i].InvoiceID < out[j].InvoiceID
	})
	return out
}

// RecentPayments returns payments dated on or after now minus days, newest
// first. Equal dates keep their input order.
func RecentPayments(payments []core.Payment, now time.Time, days int) []core.Payment {
	cutoff := now.AddDate(0, 0, -days)
	out := make([]core.Payment, 0, len(payments))
	for _, p := range payments {
		if !p.Date.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

// ProductSales is the per-product rollup over invoice lines.
type ProductSales struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name,omitempty"`
	QuantitySold int64           `json:"quantitySold"`
	Revenue      decimal.Decimal `json:"revenue"`
	InvoiceCount int             `json:"invoiceCount"`
}

// ProductRollup sums quantity and line totals per product id. Lines without
// a product reference are free text and are skipped.
func ProductRollup(invoices []core.Invoice) map[string]ProductSales {
	out := make(map[string]ProductSales)
	for _, inv := range invoices {
		seen := make(map[string]bool)
		for _, it := range inv.Items {
			if it.ProductID == "" {
				continue
			}
			ps, ok := out[it.ProductID]
			if !ok {
				ps = ProductSales{ProductID: it.ProductID, Revenue: decimal.Zero}
			}
			ps.QuantitySold += it.Quantity
			ps.Revenue = ps.Revenue.Add(it.LineTotal())
			if !seen[it.ProductID] {
				ps.InvoiceCount++
				seen[it.ProductID] = true
			}
			out[it.ProductID] = ps
		}
	}
	return out
}

// OverdueCandidates returns PENDING invoices whose due date is before now
// and whose balance is still positive, in input order.
func OverdueCandidates(invoices []core.Invoice, now time.Time) []core.Invoice {
	var out []core.Invoice
	for _, inv := range invoices {
		if inv.Status != core.InvoicePending || inv.DueDate.IsZero() {
			continue
		}
		if !inv.DueDate.Before(now) {
			continue
		}
		if InvoiceBalance(inv).IsPositive() {
			out = append(out, inv)
		}
	}
	return out
}
