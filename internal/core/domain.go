package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks plain JSON numbers for every amount.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	ClientActive   ClientStatus = "ACTIVE"
	ClientInactive ClientStatus = "INACTIVE"
	ClientBlocked  ClientStatus = "BLOCKED"

	InvoiceDraft   InvoiceStatus = "DRAFT"
	InvoicePending InvoiceStatus = "PENDING"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceOverdue InvoiceStatus = "OVERDUE"

	MethodCash         PaymentMethod = "CASH"
	MethodCheck        PaymentMethod = "CHECK"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodOther        PaymentMethod = "OTHER"

	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Enumerated values in display order. Aggregations seed their keys from these.
var (
	ClientStatuses  = []ClientStatus{ClientActive, ClientInactive, ClientBlocked}
	InvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoicePending, InvoicePaid, InvoiceOverdue}
	PaymentMethods  = []PaymentMethod{MethodCash, MethodCheck, MethodBankTransfer, MethodCreditCard, MethodOther}
	PaymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}
)

type (
	ClientStatus  string
	InvoiceStatus string
	PaymentMethod string
	PaymentStatus string

	// Date is a calendar timestamp that decodes both RFC3339 and YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Address struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zipCode"`
		Country string `json:"country"`
	}

	Company struct {
		Name               string `json:"name"`
		TaxID              string `json:"taxId,omitempty"`
		RegistrationNumber string `json:"registrationNumber,omitempty"`
	}

	Client struct {
		ID           string           `json:"id"`
		Name         string           `json:"name"`
		Email        string           `json:"email"`
		Phone        string           `json:"phone,omitempty"`
		Address      Address          `json:"address"`
		Company      *Company         `json:"company,omitempty"`
		Notes        string           `json:"notes,omitempty"`
		Status       ClientStatus     `json:"status"`
		CreditLimit  *decimal.Decimal `json:"creditLimit,omitempty"`
		PaymentTerms int              `json:"paymentTerms,omitempty"` // days
		Currency     string           `json:"currency"`
		Tags         []string         `json:"tags,omitempty"`
		CreatedAt    Date             `json:"createdAt"`
		UpdatedAt    Date             `json:"updatedAt"`
	}

	// ClientRef is the client snapshot embedded in invoices and payments.
	ClientRef struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email,omitempty"`
		Address string `json:"address,omitempty"`
	}

	InvoiceItem struct {
		ID          string           `json:"id,omitempty"`
		ProductID   string           `json:"productId,omitempty"`
		Description string           `json:"description"`
		Quantity    int64            `json:"quantity"`
		Price       decimal.Decimal  `json:"price"`
		Tax         *decimal.Decimal `json:"tax,omitempty"`
		Discount    *decimal.Decimal `json:"discount,omitempty"`
	}

	// PaymentRef is the payment snapshot embedded in an invoice. It is a
	// read-model copy and is only ever replaced wholesale.
	PaymentRef struct {
		ID     string          `json:"id"`
		Amount decimal.Decimal `json:"amount"`
		Date   Date            `json:"date"`
		Method PaymentMethod   `json:"method"`
	}

	Invoice struct {
		ID            string        `json:"id"`
		InvoiceNumber string        `json:"invoiceNumber"`
		Client        ClientRef     `json:"client"`
		Items         []InvoiceItem `json:"items"`
		CreatedAt     Date          `json:"createdAt"`
		InvoiceDate   Date          `json:"invoiceDate"`
		DueDate       Date          `json:"dueDate"`
		Status        InvoiceStatus `json:"status"`
		Notes         string        `json:"notes,omitempty"`
		Terms         string        `json:"terms,omitempty"`
		Payments      []PaymentRef  `json:"payments,omitempty"`
	}

	// InvoiceRef is the invoice snapshot embedded in a payment.
	InvoiceRef struct {
		ID            string          `json:"id"`
		InvoiceNumber string          `json:"invoiceNumber"`
		Client        ClientRef       `json:"client"`
		Total         decimal.Decimal `json:"total"`
	}

	Payment struct {
		ID        string          `json:"id"`
		Invoice   InvoiceRef      `json:"invoice"`
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		Method    PaymentMethod   `json:"method"`
		Status    PaymentStatus   `json:"status,omitempty"`
		Reference string          `json:"reference,omitempty"`
		Notes     string          `json:"notes,omitempty"`
		CreatedAt Date            `json:"createdAt"`
		UpdatedAt Date            `json:"updatedAt"`
	}

	// PaymentInput is the body of a record-payment call against an invoice.
	PaymentInput struct {
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		Method    PaymentMethod   `json:"method"`
		Reference string          `json:"reference,omitempty"`
		Notes     string          `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyItems      = errors.New("invoice has no items")
	ErrMissingClient   = errors.New("missing client reference")
	ErrMissingInvoice  = errors.New("missing invoice reference")
)

const (
	dateLayout = "2006-01-02"
	// MonthLayout is the YYYY-MM bucket key used by time series.
	MonthLayout = "2006-01"
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the YYYY-MM bucket of the date, taken in UTC so every
// host buckets the same timestamp alike.
func (d Date) MonthKey() string {
	return d.UTC().Format(MonthLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientInactive, ClientBlocked:
		return true
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoicePending, InvoicePaid, InvoiceOverdue:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCheck, MethodBankTransfer, MethodCreditCard, MethodOther:
		return true
	}
	return false
}

// Valid reports whether s is a known status. The empty status is valid
// because not every backend reports one.
func (s PaymentStatus) Valid() bool {
	switch s {
	case "", PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

func (c Client) EntityID() string  { return c.ID }
func (i Invoice) EntityID() string { return i.ID }
func (p Payment) EntityID() string { return p.ID }

// HasTag reports whether the client carries tag.
func (c Client) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c Client) CompanyName() string {
	if c.Company == nil {
		return ""
	}
	return c.Company.Name
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidEmail
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: client status %q", ErrInvalidStatus, c.Status)
	}
	if c.CreditLimit != nil && c.CreditLimit.IsNegative() {
		return errors.New("credit limit cannot be negative")
	}
	if c.PaymentTerms < 0 {
		return errors.New("payment terms cannot be negative")
	}
	return nil
}

// LineTotal is quantity × price.
func (it InvoiceItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}

func (it InvoiceItem) Validate() error {
	if strings.TrimSpace(it.Description) == "" {
		return errors.New("item description cannot be empty")
	}
	if it.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if it.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.Client.ID) == "" {
		return ErrMissingClient
	}
	if len(i.Items) == 0 {
		return ErrEmptyItems
	}
	for n, it := range i.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", n+1, err)
		}
	}
	if i.Status != "" && !i.Status.Valid() {
		return fmt.Errorf("%w: invoice status %q", ErrInvalidStatus, i.Status)
	}
	if err := i.DueDate.Validate(); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	return nil
}

// IssuedOn is the timestamp used for time bucketing: creation time, or the
// invoice date when the backend did not report one.
func (i Invoice) IssuedOn() Date {
	if !i.CreatedAt.IsZero() {
		return i.CreatedAt
	}
	return i.InvoiceDate
}

// WithoutPayment returns a copy of the invoice whose payment projection no
// longer carries paymentID.
func (i Invoice) WithoutPayment(paymentID string) Invoice {
	out := i
	out.Payments = make([]PaymentRef, 0, len(i.Payments))
	for _, p := range i.Payments {
		if p.ID != paymentID {
			out.Payments = append(out.Payments, p)
		}
	}
	return out
}

func (p PaymentInput) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	return p.Date.Validate()
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.Invoice.ID) == "" {
		return ErrMissingInvoice
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Method.Valid() {
		return ErrInvalidMethod
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: payment status %q", ErrInvalidStatus, p.Status)
	}
	return p.Date.Validate()
}
