package amqp

import (
	"encoding/json"
	"time"

	"billdesk/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publishing types, carried in the AMQP type property.
const (
	TypeChange  = "billdesk.change"
	TypeOverdue = "billdesk.overdue"
)

// ChangeEvent announces that a backend record changed. Consumers re-fetch
// the record; the event carries no payload beyond its identity.
type ChangeEvent struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId,omitempty"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(entity, entityID, action string) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// OverdueNotice is published when an invoice is moved to OVERDUE.
type OverdueNotice struct {
	ID            string          `json:"id"`
	InvoiceID     string          `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	ClientID      string          `json:"clientId"`
	ClientName    string          `json:"clientName"`
	ClientEmail   string          `json:"clientEmail,omitempty"`
	DueDate       core.Date       `json:"dueDate"`
	Balance       decimal.Decimal `json:"balance"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewOverdueNotice(inv core.Invoice, balance decimal.Decimal) *OverdueNotice {
	return &OverdueNotice{
		ID:            uuid.NewString(),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.Client.ID,
		ClientName:    inv.Client.Name,
		ClientEmail:   inv.Client.Email,
		DueDate:       inv.DueDate,
		Balance:       balance,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *OverdueNotice) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OverdueNoticeFromJSON(data []byte) (*OverdueNotice, error) {
	var msg OverdueNotice
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
