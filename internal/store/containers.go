package store

import (
	"slices"

	"billdesk/internal/core"
	"billdesk/internal/query"

	"golang.org/x/text/language"
)

type (
	InvoicesState = EntityState[core.Invoice, query.InvoiceFilters]
	PaymentsState = EntityState[core.Payment, query.PaymentFilters]
	ProductsState = EntityState[core.Product, query.ProductFilters]

	// ClientsState adds the selected client's invoices and payments.
	ClientsState struct {
		EntityState[core.Client, query.ClientFilters]
		Invoices []core.Invoice `json:"invoices"`
		Payments []core.Payment `json:"payments"`
	}
)

// Client-only events.
type (
	ClientInvoicesLoaded struct{ Items []core.Invoice }
	ClientPaymentsLoaded struct{ Items []core.Payment }

	// ClientSelected sets the selection and both sub-collections at once.
	ClientSelected struct {
		Client   core.Client
		Invoices []core.Invoice
		Payments []core.Payment
	}

	// FilterTagAdded adds a tag to the active client filter, once.
	FilterTagAdded   struct{ Tag string }
	FilterTagRemoved struct{ Tag string }
)

func (ClientInvoicesLoaded) event() {}
func (ClientPaymentsLoaded) event() {}
func (ClientSelected) event()       {}
func (FilterTagAdded) event()       {}
func (FilterTagRemoved) event()     {}

func NewInvoices() *Store[InvoicesState] {
	return New("invoices", InvoicesState{
		Items: []core.Invoice{},
		Sort:  query.Sort{Direction: query.Desc},
	}, Reduce[core.Invoice, query.InvoiceFilters])
}

func NewPayments() *Store[PaymentsState] {
	return New("payments", PaymentsState{
		Items: []core.Payment{},
		Sort:  query.Sort{Direction: query.Asc},
	}, Reduce[core.Payment, query.PaymentFilters])
}

func NewProducts() *Store[ProductsState] {
	return New("products", ProductsState{
		Items: []core.Product{},
		Sort:  query.Sort{Direction: query.Asc},
	}, Reduce[core.Product, query.ProductFilters])
}

func NewClients() *Store[ClientsState] {
	initial := ClientsState{
		Invoices: []core.Invoice{},
		Payments: []core.Payment{},
	}
	initial.Items = []core.Client{}
	initial.Sort = query.Sort{Direction: query.Asc}
	return New("clients", initial, ReduceClients)
}

// ReduceClients extends Reduce with sub-selections and tag filters.
func ReduceClients(s ClientsState, ev Event) ClientsState {
	switch e := ev.(type) {
	case ClientInvoicesLoaded:
		s.Invoices = cloneOrEmpty(e.Items)
		s.Loading = false
	case ClientPaymentsLoaded:
		s.Payments = cloneOrEmpty(e.Items)
		s.Loading = false
	case ClientSelected:
		s.EntityState = Reduce(s.EntityState, Selected[core.Client]{Item: e.Client})
		s.Invoices = cloneOrEmpty(e.Invoices)
		s.Payments = cloneOrEmpty(e.Payments)
	case FilterTagAdded:
		if !slices.Contains(s.Filters.Tags, e.Tag) {
			tags := make([]string, 0, len(s.Filters.Tags)+1)
			s.Filters.Tags = append(append(tags, s.Filters.Tags...), e.Tag)
		}
	case FilterTagRemoved:
		tags := make([]string, 0, len(s.Filters.Tags))
		for _, t := range s.Filters.Tags {
			if t != e.Tag {
				tags = append(tags, t)
			}
		}
		s.Filters.Tags = tags
	case SelectionCleared:
		s.EntityState = Reduce(s.EntityState, ev)
		s.Invoices = []core.Invoice{}
		s.Payments = []core.Payment{}
	default:
		s.EntityState = Reduce(s.EntityState, ev)
	}
	return s
}

func cloneOrEmpty[T any](items []T) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	return out
}

// VisibleInvoices applies the container's filters and sort.
func VisibleInvoices(s InvoicesState, tag language.Tag) []core.Invoice {
	return query.Invoices(s.Items, s.Filters, s.Sort, tag)
}

func VisibleClients(s ClientsState, tag language.Tag) []core.Client {
	return query.Clients(s.Items, s.Filters, s.Sort, tag)
}

func VisiblePayments(s PaymentsState, tag language.Tag) []core.Payment {
	return query.Payments(s.Items, s.Filters, s.Sort, tag)
}

func VisibleProducts(s ProductsState, tag language.Tag) []core.Product {
	return query.Products(s.Items, s.Filters, s.Sort, tag)
}
