// Package aggregate computes derived financial figures from point-in-time
// snapshots of invoices, payments and clients.
//
// Every function is pure: inputs are never mutated, nil slices are treated
// as empty, and results depend only on the multiset of inputs, never on
// their order.
package aggregate

import (
	"sort"

	"billdesk/internal/core"

	"github.com/shopspring/decimal"
)

// InvoiceTotal is the sum of quantity × price over the invoice items.
func InvoiceTotal(inv core.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// InvoicePaid is the sum of the payments embedded in the invoice.
func InvoicePaid(inv core.Invoice) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// InvoiceBalance is total minus paid. It goes negative on overpayment.
func InvoiceBalance(inv core.Invoice) decimal.Decimal {
	return InvoiceTotal(inv).Sub(InvoicePaid(inv))
}

// PortfolioMetrics summarises the whole working set. TotalPaid sums every
// payment record, including payments whose invoice is not in invoices.
func PortfolioMetrics(invoices []core.Invoice, payments []core.Payment, clients []core.Client) core.Metrics {
	m := core.Metrics{
		TotalRevenue:     decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalClients:     len(clients),
	}
	for _, inv := range invoices {
		total := InvoiceTotal(inv)
		m.TotalRevenue = m.TotalRevenue.Add(total)
		m.TotalOutstanding = m.TotalOutstanding.Add(total.Sub(InvoicePaid(inv)))
	}
	for _, p := range payments {
		m.TotalPaid = m.TotalPaid.Add(p.Amount)
	}
	return m
}

// RevenueByMonth sums invoice totals per YYYY-MM of the issue timestamp.
// The result is ascending and sparse: months without invoices are absent.
func RevenueByMonth(invoices []core.Invoice) []core.MonthAmount {
	buckets := make(map[string]decimal.Decimal)
	for _, inv := range invoices {
		issued := inv.IssuedOn()
		if issued.IsZero() {
			continue
		}
		key := issued.MonthKey()
		buckets[key] = buckets[key].Add(InvoiceTotal(inv))
	}
	return sortedMonths(buckets)
}

func sortedMonths(buckets map[string]decimal.Decimal) []core.MonthAmount {
	out := make([]core.MonthAmount, 0, len(buckets))
	for month, amount := range buckets {
		out = append(out, core.MonthAmount{Month: month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ClientRollup groups invoices by client. PaidAmount counts the full total
// of PAID invoices regardless of the payments attached to them; see
// ClientStatement for the payment-based figure.
func ClientRollup(invoices []core.Invoice) map[string]core.ClientSummary {
	out := make(map[string]core.ClientSummary)
	for _, inv := range invoices {
		s, ok := out[inv.Client.ID]
		if !ok {
			s = core.ClientSummary{
				ClientName:    inv.Client.Name,
				TotalAmount:   decimal.Zero,
				PaidAmount:    decimal.Zero,
				OverdueAmount: decimal.Zero,
			}
		}
		total := InvoiceTotal(inv)
		s.InvoiceCount++
		s.TotalAmount = s.TotalAmount.Add(total)
		switch inv.Status {
		case core.InvoicePaid:
			s.PaidAmount = s.PaidAmount.Add(total)
		case core.InvoiceOverdue:
			s.OverdueAmount = s.OverdueAmount.Add(total)
		}
		out[inv.Client.ID] = s
	}
	return out
}

// PaymentMethodStats counts and sums payments per method. Every known
// method is present in the result, zero-valued when unused. Payments with
// an unknown method are grouped under their raw value.
func PaymentMethodStats(payments []core.Payment) map[core.PaymentMethod]core.CountTotal {
	out := make(map[core.PaymentMethod]core.CountTotal, len(core.PaymentMethods))
	for _, m := range core.PaymentMethods {
		out[m] = core.CountTotal{Total: decimal.Zero}
	}
	for _, p := range payments {
		s := out[p.Method]
		s.Count++
		s.Total = s.Total.Add(p.Amount)
		out[p.Method] = s
	}
	return out
}
