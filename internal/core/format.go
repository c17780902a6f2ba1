package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts and dates for display in one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a formatter for a BCP 47 locale and a default ISO 4217
// currency code.
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
		unit:    unit,
	}, nil
}

// Currency returns the default ISO code.
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// Tag is the locale used for collation and display.
func (f *Formatter) Tag() language.Tag {
	return f.tag
}

// FormatMoney renders amount with the currency symbol of code, or of the
// default currency when code is empty or unknown. The amount is rounded
// half away from zero to the currency's scale before anything else, so the
// sign shown is the sign of the rounded value. Negative amounts carry a
// leading minus so overpayments stay visible.
func (f *Formatter) FormatMoney(amount decimal.Decimal, code string) string {
	unit := f.unit
	if code != "" {
		if u, err := currency.ParseISO(code); err == nil {
			unit = u
		}
	}
	scale, increment := currency.Standard.Rounding(unit)
	rounded := roundTo(amount, scale, increment)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	whole := rounded.Truncate(0)
	if whole.GreaterThan(maxPrintable) {
		return sign + unit.String() + " " + rounded.StringFixed(int32(scale))
	}
	// The printer only sees the integer part; the fraction digits are
	// spliced in from the decimal so no float conversion touches them.
	out := f.printer.Sprint(currency.Symbol(unit.Amount(whole.IntPart())))
	if scale > 0 {
		zeros := strings.Repeat("0", scale)
		if !strings.HasSuffix(out, zeros) {
			return sign + unit.String() + " " + rounded.StringFixed(int32(scale))
		}
		frac := rounded.Sub(whole).Shift(int32(scale)).IntPart()
		out = out[:len(out)-scale] + fmt.Sprintf("%0*d", scale, frac)
	}
	return sign + out
}

var maxPrintable = decimal.NewFromInt(math.MaxInt64)

// roundTo rounds amount to scale fractional digits in steps of increment
// units of the last digit (cash rounding).
func roundTo(amount decimal.Decimal, scale, increment int) decimal.Decimal {
	if increment <= 1 {
		return amount.Round(int32(scale))
	}
	step := decimal.New(int64(increment), -int32(scale))
	return amount.Div(step).Round(0).Mul(step)
}

// Money formats amount in the default currency.
func (f *Formatter) Money(amount decimal.Decimal) string {
	return f.FormatMoney(amount, "")
}

// FormatDate renders a date as "Jan 2, 2006" for English, day-first numeric
// for the other supported locales and ISO otherwise. Empty dates render as "-".
func (f *Formatter) FormatDate(d Date) string {
	if d.IsZero() {
		return "-"
	}
	base, _ := f.tag.Base()
	switch base.String() {
	case "en":
		return d.Format("Jan 2, 2006")
	case "it", "de", "fr", "es", "pt":
		sep := "/"
		if base.String() == "de" {
			sep = "."
		}
		return strings.Join([]string{d.Format("02"), d.Format("01"), d.Format("2006")}, sep)
	}
	return d.Format(dateLayout)
}
