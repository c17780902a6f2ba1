package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"2024-01-15T10:30:00Z"`, "2024-01-15", true},
		{`"2024-03-01"`, "2024-03-01", true},
		{`null`, "", true},
		{`""`, "", true},
		{`"15/01/2024"`, "", false},
		{`12`, "", false},
	}
	for _, tc := range cases {
		var d Date
		err := json.Unmarshal([]byte(tc.in), &d)
		if !tc.ok {
			if err == nil {
				t.Fatalf("%s expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s unexpected error: %v", tc.in, err)
		}
		got := ""
		if !d.IsZero() {
			got = d.Format("2006-01-02")
		}
		if got != tc.want {
			t.Errorf("%s = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMonthKeyUsesUTC(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-31T22:00:00-05:00", "2024-02"},
		{"2024-02-01T00:30:00+02:00", "2024-01"},
		{"2024-01-31T23:59:59Z", "2024-01"},
		{"2024-12-31", "2024-12"},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.in, err)
		}
		if got := d.MonthKey(); got != tt.want {
			t.Errorf("MonthKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateMarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 2, 29))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-29T00:00:00Z"` {
		t.Errorf("Marshal = %s", b)
	}
	b, _ = json.Marshal(Date{})
	if string(b) != "null" {
		t.Errorf("zero date = %s, want null", b)
	}
}

func TestInvoiceDecodesNumericAmounts(t *testing.T) {
	body := `{"id":"i1","invoiceNumber":"INV-1","client":{"id":"c1","name":"Acme"},
		"items":[{"description":"Work","quantity":3,"price":12.5}],
		"createdAt":"2024-01-15T00:00:00Z","dueDate":"2024-02-15","status":"PENDING",
		"payments":[{"id":"p1","amount":10,"date":"2024-01-20","method":"CASH"}]}`
	var inv Invoice
	if err := json.Unmarshal([]byte(body), &inv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := inv.Items[0].LineTotal(); !got.Equal(decimal.RequireFromString("37.5")) {
		t.Errorf("LineTotal = %s, want 37.5", got)
	}
	if inv.Payments[0].Method != MethodCash {
		t.Errorf("payment method = %s", inv.Payments[0].Method)
	}
	out, err := json.Marshal(inv.Payments[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(out, &raw)
	if _, ok := raw["amount"].(float64); !ok {
		t.Errorf("amount should encode as a JSON number, got %T", raw["amount"])
	}
}

func TestClientValidate(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	good := Client{Name: "Acme", Email: "billing@acme.test", Status: ClientActive, Currency: "EUR"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mod  func(c *Client)
		want error
	}{
		{"empty name", func(c *Client) { c.Name = " " }, ErrEmptyName},
		{"bad email", func(c *Client) { c.Email = "nope" }, ErrInvalidEmail},
		{"bad status", func(c *Client) { c.Status = "active" }, ErrInvalidStatus},
		{"negative credit", func(c *Client) { c.CreditLimit = &neg }, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := good
			tc.mod(&c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestInvoiceValidate(t *testing.T) {
	good := Invoice{
		Client:  ClientRef{ID: "c1", Name: "Acme"},
		Items:   []InvoiceItem{{Description: "Work", Quantity: 1, Price: decimal.NewFromInt(10)}},
		DueDate: NewDate(2025, 1, 31),
		Status:  InvoiceDraft,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	noClient := good
	noClient.Client = ClientRef{}
	if err := noClient.Validate(); !errors.Is(err, ErrMissingClient) {
		t.Errorf("missing client error = %v", err)
	}

	noItems := good
	noItems.Items = nil
	if err := noItems.Validate(); !errors.Is(err, ErrEmptyItems) {
		t.Errorf("empty items error = %v", err)
	}

	zeroQty := good
	zeroQty.Items = []InvoiceItem{{Description: "Work", Quantity: 0, Price: decimal.NewFromInt(10)}}
	if err := zeroQty.Validate(); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity error = %v", err)
	}

	negPrice := good
	negPrice.Items = []InvoiceItem{{Description: "Work", Quantity: 1, Price: decimal.NewFromInt(-1)}}
	if err := negPrice.Validate(); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("negative price error = %v", err)
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{
		Invoice: InvoiceRef{ID: "i1"},
		Amount:  decimal.NewFromInt(5),
		Date:    NewDate(2025, 1, 1),
		Method:  MethodBankTransfer,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok without status, got %v", err)
	}
	good.Status = PaymentRefunded
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok with status, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount error = %v", err)
	}
	method := good
	method.Method = "BITCOIN"
	if err := method.Validate(); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("method error = %v", err)
	}
}

func TestInvoiceWithoutPayment(t *testing.T) {
	inv := Invoice{ID: "i1", Payments: []PaymentRef{{ID: "p1"}, {ID: "p2"}}}
	out := inv.WithoutPayment("p1")
	if len(out.Payments) != 1 || out.Payments[0].ID != "p2" {
		t.Fatalf("payments = %+v", out.Payments)
	}
	if len(inv.Payments) != 2 {
		t.Fatalf("source invoice mutated: %+v", inv.Payments)
	}
}

func TestInvoiceIssuedOn(t *testing.T) {
	inv := Invoice{InvoiceDate: NewDate(2024, 5, 2)}
	if got := inv.IssuedOn().MonthKey(); got != "2024-05" {
		t.Errorf("fallback MonthKey = %s, want 2024-05", got)
	}
	inv.CreatedAt = NewDate(2024, 4, 30)
	if got := inv.IssuedOn().MonthKey(); got != "2024-04" {
		t.Errorf("MonthKey = %s, want 2024-04", got)
	}
}
