package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestCents(t *testing.T) {
	if got := Cents(decimal.RequireFromString("12.345")); got != 1235 {
		t.Errorf("Cents(12.345) = %d, want 1235", got)
	}
	if got := FromCents(1999); !got.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("FromCents(1999) = %s", got)
	}
}

func TestFormatter(t *testing.T) {
	f, err := NewFormatter("en-US", "USD")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	if f.Currency() != "USD" {
		t.Errorf("Currency() = %s", f.Currency())
	}

	got := f.Money(decimal.RequireFromString("1234.5"))
	if !strings.Contains(got, "1,234.50") || !strings.Contains(got, "$") {
		t.Errorf("Money = %q, want grouped amount with symbol", got)
	}

	neg := f.Money(decimal.RequireFromString("-20"))
	if !strings.HasPrefix(neg, "-") || !strings.Contains(neg, "20.00") {
		t.Errorf("negative Money = %q", neg)
	}

	eur := f.FormatMoney(decimal.NewFromInt(3), "EUR")
	if !strings.Contains(eur, "€") {
		t.Errorf("FormatMoney EUR = %q", eur)
	}

	if got := f.FormatDate(NewDate(2024, 3, 1)); got != "Mar 1, 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := f.FormatDate(Date{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q", got)
	}

	it, err := NewFormatter("it-IT", "EUR")
	if err != nil {
		t.Fatalf("NewFormatter it: %v", err)
	}
	if got := it.FormatDate(NewDate(2024, 3, 1)); got != "01/03/2024" {
		t.Errorf("it FormatDate = %q", got)
	}

	if _, err := NewFormatter("en", "XXXX"); err == nil {
		t.Fatalf("expected error for unknown currency")
	}
}

func TestFormatDateByLocale(t *testing.T) {
	day := NewDate(2024, 3, 9)
	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "Mar 9, 2024"},
		{"en-GB", "Mar 9, 2024"},
		{"it-IT", "09/03/2024"},
		{"fr", "09/03/2024"},
		{"es-ES", "09/03/2024"},
		{"pt-BR", "09/03/2024"},
		{"de-DE", "09.03.2024"},
		{"ja-JP", "2024-03-09"},
	}
	for _, tt := range tests {
		f, err := NewFormatter(tt.locale, "EUR")
		if err != nil {
			t.Fatalf("NewFormatter(%s): %v", tt.locale, err)
		}
		if got := f.FormatDate(day); got != tt.want {
			t.Errorf("FormatDate(%s) = %q, want %q", tt.locale, got, tt.want)
		}
		if got := f.FormatDate(Date{}); got != "-" {
			t.Errorf("FormatDate(%s, zero) = %q, want -", tt.locale, got)
		}
	}
}

func TestFormatMoneyRoundsDecimals(t *testing.T) {
	usd, err := NewFormatter("en-US", "USD")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	tests := []struct {
		amount string
		want   string
	}{
		{"1.005", "$ 1.01"},
		{"0.005", "$ 0.01"},
		{"2.675", "$ 2.68"},
		{"90071992547409.93", "$ 90,071,992,547,409.93"},
		{"0.1", "$ 0.10"},
		{"-1.005", "-$ 1.01"},
		{"-0.004", "$ 0.00"},
		{"-0.005", "-$ 0.01"},
		{"0", "$ 0.00"},
	}
	for _, tt := range tests {
		if got := usd.Money(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("Money(%s) = %q, want %q", tt.amount, got, tt.want)
		}
	}

	if got := usd.FormatMoney(decimal.RequireFromString("1234.5"), "JPY"); !strings.HasSuffix(got, " 1,235") {
		t.Errorf("FormatMoney JPY = %q, want no fraction digits", got)
	}

	it, err := NewFormatter("it-IT", "EUR")
	if err != nil {
		t.Fatalf("NewFormatter it: %v", err)
	}
	if got := it.Money(decimal.RequireFromString("12345.565")); !strings.HasSuffix(got, "12.345,57") {
		t.Errorf("it Money = %q, want 12.345,57", got)
	}
}
