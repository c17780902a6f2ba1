package core

import "github.com/shopspring/decimal"

// MonthAmount is an amount aggregated into a YYYY-MM bucket.
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Metrics is the portfolio-level overview.
type Metrics struct {
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	TotalClients     int             `json:"totalClients"`
}

// ClientSummary is one row of the per-client rollup.
type ClientSummary struct {
	ClientName    string          `json:"clientName"`
	InvoiceCount  int             `json:"invoiceCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
}

// CountTotal pairs a record count with a summed amount.
type CountTotal struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}
