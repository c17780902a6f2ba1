package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProductSchemaByName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "upper", true},
		{"upper", "upper", true},
		{"LOWER", "lower", true},
		{"mixed", "", false},
	}
	for _, tc := range cases {
		s, err := ProductSchemaByName(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrUnknownSchema) {
				t.Fatalf("%q error = %v", tc.in, err)
			}
			continue
		}
		if err != nil || s.Name != tc.want {
			t.Fatalf("%q = %s (err=%v), want %s", tc.in, s.Name, err, tc.want)
		}
	}
}

func TestProductValidateRespectsSchema(t *testing.T) {
	p := Product{Name: "Consulting", Type: "service", Status: "active", Price: Price{Amount: decimal.NewFromInt(100), Currency: "EUR"}}
	if err := p.Validate(LowerProductSchema); err != nil {
		t.Fatalf("lower schema: %v", err)
	}
	if err := p.Validate(UpperProductSchema); err == nil {
		t.Fatalf("upper schema should reject lower-case values")
	}
}

func TestProductUnmarshalDocumentID(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"_id":"abc","name":"Widget","type":"product","status":"active","price":{"amount":9.99,"currency":"EUR"},"inventory":{"quantity":0,"lowStockAlert":5}}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "abc" {
		t.Errorf("ID = %q, want abc", p.ID)
	}
	if p.InStock() {
		t.Errorf("InStock = true for zero quantity")
	}
	if !p.LowStock() {
		t.Errorf("LowStock = false, want true")
	}

	if err := json.Unmarshal([]byte(`{"id":"x1","_id":"abc","name":"W"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "x1" {
		t.Errorf("ID = %q, want x1", p.ID)
	}
}
