package http

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"billdesk/internal/core"
	"billdesk/internal/query"

	"github.com/shopspring/decimal"
)

const maxListLimit = 500

// ParseSort reads sort and dir. An empty sort keeps input order; a sort
// field outside allowed is rejected.
func ParseSort(q url.Values, allowed []string) (query.Sort, error) {
	s := query.Sort{
		Field:     strings.TrimSpace(q.Get("sort")),
		Direction: query.ParseDirection(q.Get("dir")),
	}
	if s.Field != "" && !slices.Contains(allowed, s.Field) {
		return query.Sort{}, fmt.Errorf("sort: unknown field %q (allowed: %s)", s.Field, strings.Join(allowed, ", "))
	}
	return s, nil
}

// ParseLimit reads a positive limit capped at maxListLimit, or def.
func ParseLimit(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit: want a positive integer, got %q", v)
	}
	return min(n, maxListLimit), nil
}

// paramErrors collects every bad parameter so one response names them all.
type paramErrors []error

func (p *paramErrors) add(err error) {
	if err != nil {
		*p = append(*p, err)
	}
}

func (p paramErrors) err() error {
	return errors.Join(p...)
}

func parseDateParam(q url.Values, name string, errs *paramErrors) core.Date {
	d, err := core.ParseDate(q.Get(name))
	if err != nil {
		errs.add(fmt.Errorf("%s: %w", name, err))
	}
	return d
}

func parsePriceParam(q url.Values, name string, errs *paramErrors) *decimal.Decimal {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil || d.IsNegative() {
		errs.add(fmt.Errorf("%s: want a non-negative amount, got %q", name, v))
		return nil
	}
	return &d
}

// listParam accepts both repeated keys and comma-separated values.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func ParseInvoiceFilters(q url.Values) (query.InvoiceFilters, error) {
	var errs paramErrors
	f := query.InvoiceFilters{
		Status:    core.InvoiceStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		StartDate: parseDateParam(q, "from", &errs),
		EndDate:   parseDateParam(q, "to", &errs),
		ClientID:  strings.TrimSpace(q.Get("client")),
	}
	if f.Status != "" && !f.Status.Valid() {
		errs.add(fmt.Errorf("status: unknown invoice status %q", f.Status))
	}
	return f, errs.err()
}

func ParseClientFilters(q url.Values) (query.ClientFilters, error) {
	var errs paramErrors
	f := query.ClientFilters{
		Status: core.ClientStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search: strings.TrimSpace(q.Get("q")),
		Tags:   listParam(q, "tag"),
	}
	if f.Status != "" && !f.Status.Valid() {
		errs.add(fmt.Errorf("status: unknown client status %q", f.Status))
	}
	return f, errs.err()
}

func ParsePaymentFilters(q url.Values) (query.PaymentFilters, error) {
	var errs paramErrors
	f := query.PaymentFilters{
		StartDate: parseDateParam(q, "from", &errs),
		EndDate:   parseDateParam(q, "to", &errs),
		Method:    core.PaymentMethod(strings.ToUpper(strings.TrimSpace(q.Get("method")))),
		Status:    core.PaymentStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	if f.Method != "" && !f.Method.Valid() {
		errs.add(fmt.Errorf("method: unknown payment method %q", f.Method))
	}
	if f.Status != "" && !f.Status.Valid() {
		errs.add(fmt.Errorf("status: unknown payment status %q", f.Status))
	}
	return f, errs.err()
}

// ParseProductFilters checks type and status against the product schema in
// use, since the two schemas spell them differently.
func ParseProductFilters(q url.Values, schema core.ProductSchema) (query.ProductFilters, error) {
	var errs paramErrors
	f := query.ProductFilters{
		Search:   strings.TrimSpace(q.Get("q")),
		Type:     strings.TrimSpace(q.Get("type")),
		Category: strings.TrimSpace(q.Get("category")),
		Status:   strings.TrimSpace(q.Get("status")),
		MinPrice: parsePriceParam(q, "min", &errs),
		MaxPrice: parsePriceParam(q, "max", &errs),
	}
	if v := strings.TrimSpace(q.Get("inStock")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.add(fmt.Errorf("inStock: want a boolean, got %q", v))
		}
		f.InStock = b
	}
	if f.Type != "" && !schema.ValidType(f.Type) {
		errs.add(fmt.Errorf("type: unknown product type %q", f.Type))
	}
	if f.Status != "" && !schema.ValidStatus(f.Status) {
		errs.add(fmt.Errorf("status: unknown product status %q", f.Status))
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		errs.add(errors.New("min: greater than max"))
	}
	return f, errs.err()
}
