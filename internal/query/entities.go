package query

import (
	"time"

	"billdesk/internal/aggregate"
	"billdesk/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

type InvoiceFilters struct {
	Status    core.InvoiceStatus `json:"status,omitempty"`
	StartDate core.Date          `json:"startDate"`
	EndDate   core.Date          `json:"endDate"`
	ClientID  string             `json:"clientId,omitempty"`
}

type ClientFilters struct {
	Status core.ClientStatus `json:"status,omitempty"`
	Search string            `json:"search,omitempty"`
	Tags   []string          `json:"tags,omitempty"`
}

type PaymentFilters struct {
	StartDate core.Date          `json:"startDate"`
	EndDate   core.Date          `json:"endDate"`
	Method    core.PaymentMethod `json:"method,omitempty"`
	Status    core.PaymentStatus `json:"status,omitempty"`
}

// ProductFilters match Type and Status verbatim against the stored value.
type ProductFilters struct {
	Search   string           `json:"search,omitempty"`
	Type     string           `json:"type,omitempty"`
	Category string           `json:"category,omitempty"`
	Status   string           `json:"status,omitempty"`
	MinPrice *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice *decimal.Decimal `json:"maxPrice,omitempty"`
	InStock  bool             `json:"inStock,omitempty"`
}

// Predicates for invoices filter on the creation date.
func (f InvoiceFilters) Predicates() []Predicate[core.Invoice] {
	var ps []Predicate[core.Invoice]
	if f.Status != "" {
		ps = append(ps, Equals(func(i core.Invoice) core.InvoiceStatus { return i.Status }, f.Status))
	}
	if f.ClientID != "" {
		ps = append(ps, Equals(func(i core.Invoice) string { return i.Client.ID }, f.ClientID))
	}
	ps = append(ps, DateBetween(func(i core.Invoice) time.Time { return i.IssuedOn().Time }, f.StartDate.Time, EndOfDay(f.EndDate.Time)))
	return ps
}

func (f ClientFilters) Predicates() []Predicate[core.Client] {
	var ps []Predicate[core.Client]
	if f.Status != "" {
		ps = append(ps, Equals(func(c core.Client) core.ClientStatus { return c.Status }, f.Status))
	}
	ps = append(ps,
		ContainsFold(f.Search,
			func(c core.Client) string { return c.Name },
			func(c core.Client) string { return c.Email },
			core.Client.CompanyName,
		),
		TagsIntersect(func(c core.Client) []string { return c.Tags }, f.Tags),
	)
	return ps
}

func (f PaymentFilters) Predicates() []Predicate[core.Payment] {
	var ps []Predicate[core.Payment]
	if f.Method != "" {
		ps = append(ps, Equals(func(p core.Payment) core.PaymentMethod { return p.Method }, f.Method))
	}
	if f.Status != "" {
		ps = append(ps, Equals(func(p core.Payment) core.PaymentStatus { return p.Status }, f.Status))
	}
	ps = append(ps, DateBetween(func(p core.Payment) time.Time { return p.Date.Time }, f.StartDate.Time, EndOfDay(f.EndDate.Time)))
	return ps
}

func (f ProductFilters) Predicates() []Predicate[core.Product] {
	var ps []Predicate[core.Product]
	if f.Type != "" {
		ps = append(ps, Equals(func(p core.Product) string { return p.Type }, f.Type))
	}
	if f.Category != "" {
		ps = append(ps, Equals(func(p core.Product) string { return p.Category }, f.Category))
	}
	if f.Status != "" {
		ps = append(ps, Equals(func(p core.Product) string { return p.Status }, f.Status))
	}
	if f.InStock {
		ps = append(ps, core.Product.InStock)
	}
	ps = append(ps,
		ContainsFold(f.Search,
			func(p core.Product) string { return p.Name },
			func(p core.Product) string { return p.SKU },
			func(p core.Product) string { return p.Description },
		),
		Between(func(p core.Product) decimal.Decimal { return p.Price.Amount }, f.MinPrice, f.MaxPrice),
	)
	return ps
}

// Sortable fields, keyed by their JSON names.
var (
	InvoiceFields = Fields[core.Invoice]{
		"invoiceNumber": StringField(func(i core.Invoice) string { return i.InvoiceNumber }),
		"clientName":    StringField(func(i core.Invoice) string { return i.Client.Name }),
		"status":        StringField(func(i core.Invoice) string { return string(i.Status) }),
		"createdAt":     TimeField(func(i core.Invoice) time.Time { return i.IssuedOn().Time }),
		"invoiceDate":   TimeField(func(i core.Invoice) time.Time { return i.InvoiceDate.Time }),
		"dueDate":       TimeField(func(i core.Invoice) time.Time { return i.DueDate.Time }),
		"total":         NumberField(aggregate.InvoiceTotal),
		"balance":       NumberField(aggregate.InvoiceBalance),
	}

	ClientFields = Fields[core.Client]{
		"name":         StringField(func(c core.Client) string { return c.Name }),
		"email":        StringField(func(c core.Client) string { return c.Email }),
		"company":      StringField(core.Client.CompanyName),
		"status":       StringField(func(c core.Client) string { return string(c.Status) }),
		"currency":     StringField(func(c core.Client) string { return c.Currency }),
		"createdAt":    TimeField(func(c core.Client) time.Time { return c.CreatedAt.Time }),
		"updatedAt":    TimeField(func(c core.Client) time.Time { return c.UpdatedAt.Time }),
		"paymentTerms": IntField(func(c core.Client) int64 { return int64(c.PaymentTerms) }),
		"creditLimit": NumberField(func(c core.Client) decimal.Decimal {
			if c.CreditLimit == nil {
				return decimal.Zero
			}
			return *c.CreditLimit
		}),
	}

	PaymentFields = Fields[core.Payment]{
		"date":          TimeField(func(p core.Payment) time.Time { return p.Date.Time }),
		"createdAt":     TimeField(func(p core.Payment) time.Time { return p.CreatedAt.Time }),
		"amount":        NumberField(func(p core.Payment) decimal.Decimal { return p.Amount }),
		"method":        StringField(func(p core.Payment) string { return string(p.Method) }),
		"status":        StringField(func(p core.Payment) string { return string(p.Status) }),
		"reference":     StringField(func(p core.Payment) string { return p.Reference }),
		"invoiceNumber": StringField(func(p core.Payment) string { return p.Invoice.InvoiceNumber }),
		"clientName":    StringField(func(p core.Payment) string { return p.Invoice.Client.Name }),
	}

	ProductFields = Fields[core.Product]{
		"name":     StringField(func(p core.Product) string { return p.Name }),
		"sku":      StringField(func(p core.Product) string { return p.SKU }),
		"type":     StringField(func(p core.Product) string { return p.Type }),
		"status":   StringField(func(p core.Product) string { return p.Status }),
		"category": StringField(func(p core.Product) string { return p.Category }),
		"price":    NumberField(func(p core.Product) decimal.Decimal { return p.Price.Amount }),
		"taxRate":  NumberField(func(p core.Product) decimal.Decimal { return p.TaxRate }),
		"quantity": IntField(func(p core.Product) int64 {
			if p.Inventory == nil {
				return 0
			}
			return int64(p.Inventory.Quantity)
		}),
	}
)

// Invoices filters then sorts invoices.
func Invoices(items []core.Invoice, f InvoiceFilters, s Sort, tag language.Tag) []core.Invoice {
	return SortBy(Filter(items, f.Predicates()...), s, InvoiceFields, tag)
}

func Clients(items []core.Client, f ClientFilters, s Sort, tag language.Tag) []core.Client {
	return SortBy(Filter(items, f.Predicates()...), s, ClientFields, tag)
}

func Payments(items []core.Payment, f PaymentFilters, s Sort, tag language.Tag) []core.Payment {
	return SortBy(Filter(items, f.Predicates()...), s, PaymentFields, tag)
}

func Products(items []core.Product, f ProductFilters, s Sort, tag language.Tag) []core.Product {
	return SortBy(Filter(items, f.Predicates()...), s, ProductFields, tag)
}
