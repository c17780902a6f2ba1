package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product type and status travel as raw strings. Two vocabularies exist in
// the wild, so the schema in use is chosen by configuration and values are
// never rewritten from one casing to the other.
type (
	Price struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}

	Inventory struct {
		Quantity      int `json:"quantity"`
		LowStockAlert int `json:"lowStockAlert"`
	}

	Image struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	}

	CustomField struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	Product struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		SKU          string          `json:"sku,omitempty"`
		Description  string          `json:"description,omitempty"`
		Type         string          `json:"type"`
		Status       string          `json:"status"`
		Price        Price           `json:"price"`
		Unit         string          `json:"unit,omitempty"`
		TaxRate      decimal.Decimal `json:"taxRate"`
		Inventory    *Inventory      `json:"inventory,omitempty"`
		Category     string          `json:"category,omitempty"`
		Tags         []string        `json:"tags,omitempty"`
		Images       []Image         `json:"images,omitempty"`
		CustomFields []CustomField   `json:"customFields,omitempty"`
	}

	ProductSchema struct {
		Name         string
		Product      string
		Service      string
		Active       string
		Inactive     string
		Discontinued string
	}
)

var (
	UpperProductSchema = ProductSchema{
		Name:         "upper",
		Product:      "PRODUCT",
		Service:      "SERVICE",
		Active:       "ACTIVE",
		Inactive:     "INACTIVE",
		Discontinued: "DISCONTINUED",
	}
	LowerProductSchema = ProductSchema{
		Name:         "lower",
		Product:      "product",
		Service:      "service",
		Active:       "active",
		Inactive:     "inactive",
		Discontinued: "discontinued",
	}

	ErrUnknownSchema = errors.New("unknown product schema")
)

// ProductSchemaByName resolves "upper" or "lower".
func ProductSchemaByName(name string) (ProductSchema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", UpperProductSchema.Name:
		return UpperProductSchema, nil
	case LowerProductSchema.Name:
		return LowerProductSchema, nil
	}
	return ProductSchema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

func (s ProductSchema) ValidType(t string) bool {
	return t == s.Product || t == s.Service
}

func (s ProductSchema) ValidStatus(st string) bool {
	return st == s.Active || st == s.Inactive || st == s.Discontinued
}

func (p Product) EntityID() string { return p.ID }

// UnmarshalJSON also accepts the document-store style "_id" key.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	aux := struct {
		*plain
		DocID string `json:"_id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.DocID
	}
	return nil
}

// InStock is true for products with a positive inventory quantity. Products
// without tracked inventory are never in stock.
func (p Product) InStock() bool {
	return p.Inventory != nil && p.Inventory.Quantity > 0
}

// LowStock reports inventory at or below the alert threshold.
func (p Product) LowStock() bool {
	return p.Inventory != nil && p.Inventory.Quantity <= p.Inventory.LowStockAlert
}

func (p Product) Validate(schema ProductSchema) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !schema.ValidType(p.Type) {
		return fmt.Errorf("product type %q not in %s schema", p.Type, schema.Name)
	}
	if !schema.ValidStatus(p.Status) {
		return fmt.Errorf("%w: product status %q not in %s schema", ErrInvalidStatus, p.Status, schema.Name)
	}
	if p.Price.Amount.IsNegative() {
		return ErrInvalidPrice
	}
	if p.TaxRate.IsNegative() {
		return errors.New("tax rate cannot be negative")
	}
	if p.Inventory != nil && p.Inventory.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}
