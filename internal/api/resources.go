package api

import (
	"context"
	"net/http"
	"net/url"

	"billdesk/internal/core"
)

type statusBody struct {
	Status string `json:"status"`
}

// Clients

func (c *Client) ListClients(ctx context.Context) ([]core.Client, error) {
	var out []core.Client
	err := c.do(ctx, call{op: "list clients", method: http.MethodGet, path: "/clients", fallback: "Failed to fetch clients"}, &out)
	return out, err
}

func (c *Client) GetClient(ctx context.Context, id string) (core.Client, error) {
	var out core.Client
	err := c.do(ctx, call{op: "get client", method: http.MethodGet, path: "/clients/" + url.PathEscape(id), fallback: "Failed to fetch client"}, &out)
	return out, err
}

func (c *Client) CreateClient(ctx context.Context, in core.Client) (core.Client, error) {
	var out core.Client
	err := c.do(ctx, call{op: "create client", method: http.MethodPost, path: "/clients", body: in, fallback: "Failed to create client"}, &out)
	return out, err
}

func (c *Client) UpdateClient(ctx context.Context, id string, in core.Client) (core.Client, error) {
	var out core.Client
	err := c.do(ctx, call{op: "update client", method: http.MethodPut, path: "/clients/" + url.PathEscape(id), body: in, fallback: "Failed to update client"}, &out)
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete client", method: http.MethodDelete, path: "/clients/" + url.PathEscape(id), fallback: "Failed to delete client"}, nil)
}

func (c *Client) UpdateClientStatus(ctx context.Context, id string, status core.ClientStatus) (core.Client, error) {
	var out core.Client
	err := c.do(ctx, call{
		op: "update client status", method: http.MethodPatch,
		path:     "/clients/" + url.PathEscape(id) + "/status",
		body:     statusBody{Status: string(status)},
		fallback: "Failed to update client status",
	}, &out)
	return out, err
}

func (c *Client) ClientInvoices(ctx context.Context, id string) ([]core.Invoice, error) {
	var out []core.Invoice
	err := c.do(ctx, call{op: "list client invoices", method: http.MethodGet, path: "/clients/" + url.PathEscape(id) + "/invoices", fallback: "Failed to fetch client invoices"}, &out)
	return out, err
}

func (c *Client) ClientPayments(ctx context.Context, id string) ([]core.Payment, error) {
	var out []core.Payment
	err := c.do(ctx, call{op: "list client payments", method: http.MethodGet, path: "/clients/" + url.PathEscape(id) + "/payments", fallback: "Failed to fetch client payments"}, &out)
	return out, err
}

func (c *Client) SearchClients(ctx context.Context, q string) ([]core.Client, error) {
	var out []core.Client
	err := c.do(ctx, call{
		op: "search clients", method: http.MethodGet, path: "/clients/search",
		query:    url.Values{"q": {q}},
		fallback: "Failed to search clients",
	}, &out)
	return out, err
}

// Invoices

func (c *Client) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	var out []core.Invoice
	err := c.do(ctx, call{op: "list invoices", method: http.MethodGet, path: "/invoices", fallback: "Failed to fetch invoices"}, &out)
	return out, err
}

func (c *Client) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	var out core.Invoice
	err := c.do(ctx, call{op: "get invoice", method: http.MethodGet, path: "/invoices/" + url.PathEscape(id), fallback: "Failed to fetch invoice"}, &out)
	return out, err
}

func (c *Client) CreateInvoice(ctx context.Context, in core.Invoice) (core.Invoice, error) {
	var out core.Invoice
	err := c.do(ctx, call{op: "create invoice", method: http.MethodPost, path: "/invoices", body: in, fallback: "Failed to create invoice"}, &out)
	return out, err
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, in core.Invoice) (core.Invoice, error) {
	var out core.Invoice
	err := c.do(ctx, call{op: "update invoice", method: http.MethodPut, path: "/invoices/" + url.PathEscape(id), body: in, fallback: "Failed to update invoice"}, &out)
	return out, err
}

func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete invoice", method: http.MethodDelete, path: "/invoices/" + url.PathEscape(id), fallback: "Failed to delete invoice"}, nil)
}

func (c *Client) UpdateInvoiceStatus(ctx context.Context, id string, status core.InvoiceStatus) (core.Invoice, error) {
	var out core.Invoice
	err := c.do(ctx, call{
		op: "update invoice status", method: http.MethodPatch,
		path:     "/invoices/" + url.PathEscape(id) + "/status",
		body:     statusBody{Status: string(status)},
		fallback: "Failed to update invoice status",
	}, &out)
	return out, err
}

// InvoicesByClient lists invoices through the invoice resource.
func (c *Client) InvoicesByClient(ctx context.Context, clientID string) ([]core.Invoice, error) {
	var out []core.Invoice
	err := c.do(ctx, call{op: "list invoices by client", method: http.MethodGet, path: "/invoices/client/" + url.PathEscape(clientID), fallback: "Failed to fetch invoices"}, &out)
	return out, err
}

// InvoicePDF downloads the rendered invoice.
func (c *Client) InvoicePDF(ctx context.Context, id string) ([]byte, error) {
	return c.raw(ctx, call{
		op: "download invoice pdf", method: http.MethodGet,
		path:     "/invoices/" + url.PathEscape(id) + "/pdf",
		accept:   "application/pdf",
		fallback: "Failed to generate PDF",
	})
}

// RecordPayment records a payment against an invoice and returns the created
// payment.
func (c *Client) RecordPayment(ctx context.Context, invoiceID string, in core.PaymentInput) (core.Payment, error) {
	var out core.Payment
	err := c.do(ctx, call{
		op: "record payment", method: http.MethodPost,
		path:     "/invoices/" + url.PathEscape(invoiceID) + "/payments",
		body:     in,
		fallback: "Failed to record payment",
	}, &out)
	return out, err
}

// Payments

func (c *Client) ListPayments(ctx context.Context) ([]core.Payment, error) {
	var out []core.Payment
	err := c.do(ctx, call{op: "list payments", method: http.MethodGet, path: "/payments", fallback: "Failed to fetch payments"}, &out)
	return out, err
}

func (c *Client) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	var out core.Payment
	err := c.do(ctx, call{op: "get payment", method: http.MethodGet, path: "/payments/" + url.PathEscape(id), fallback: "Failed to fetch payment"}, &out)
	return out, err
}

func (c *Client) CreatePayment(ctx context.Context, in core.Payment) (core.Payment, error) {
	var out core.Payment
	err := c.do(ctx, call{op: "create payment", method: http.MethodPost, path: "/payments", body: in, fallback: "Failed to create payment"}, &out)
	return out, err
}

func (c *Client) UpdatePayment(ctx context.Context, id string, in core.Payment) (core.Payment, error) {
	var out core.Payment
	err := c.do(ctx, call{op: "update payment", method: http.MethodPut, path: "/payments/" + url.PathEscape(id), body: in, fallback: "Failed to update payment"}, &out)
	return out, err
}

func (c *Client) DeletePayment(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete payment", method: http.MethodDelete, path: "/payments/" + url.PathEscape(id), fallback: "Failed to delete payment"}, nil)
}

func (c *Client) PaymentsByInvoice(ctx context.Context, invoiceID string) ([]core.Payment, error) {
	var out []core.Payment
	err := c.do(ctx, call{op: "list invoice payments", method: http.MethodGet, path: "/payments/invoice/" + url.PathEscape(invoiceID), fallback: "Failed to fetch invoice payments"}, &out)
	return out, err
}

// Products

func (c *Client) ListProducts(ctx context.Context) ([]core.Product, error) {
	var out []core.Product
	err := c.do(ctx, call{op: "list products", method: http.MethodGet, path: "/products", fallback: "Failed to fetch products"}, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (core.Product, error) {
	var out core.Product
	err := c.do(ctx, call{op: "get product", method: http.MethodGet, path: "/products/" + url.PathEscape(id), fallback: "Failed to fetch product"}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, in core.Product) (core.Product, error) {
	var out core.Product
	err := c.do(ctx, call{op: "create product", method: http.MethodPost, path: "/products", body: in, fallback: "Failed to create product"}, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in core.Product) (core.Product, error) {
	var out core.Product
	err := c.do(ctx, call{op: "update product", method: http.MethodPut, path: "/products/" + url.PathEscape(id), body: in, fallback: "Failed to update product"}, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete product", method: http.MethodDelete, path: "/products/" + url.PathEscape(id), fallback: "Failed to delete product"}, nil)
}
