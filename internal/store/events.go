package store

import "billdesk/internal/query"

// Op names a remote-sync operation.
type Op string

const (
	OpFetchAll       Op = "fetchAll"
	OpFetchByID      Op = "fetchById"
	OpCreate         Op = "create"
	OpUpdate         Op = "update"
	OpDelete         Op = "delete"
	OpUpdateStatus   Op = "updateStatus"
	OpRecordPayment  Op = "recordPayment"
	OpFetchInvoices  Op = "fetchInvoices"
	OpFetchPayments  Op = "fetchPayments"
	OpFetchByInvoice Op = "fetchByInvoice"
)

// Event is a state transition input. The set of events is closed.
type Event interface {
	event()
}

type (
	// Started marks a remote call as pending.
	Started struct{ Op Op }

	// Failed marks a remote call as rejected with a display message.
	Failed struct {
		Op      Op
		Message string
	}

	// Settled ends a call that changes no data.
	Settled struct{ Op Op }

	// Loaded replaces the whole collection.
	Loaded[T any] struct{ Items []T }

	// Selected sets the selected record.
	Selected[T any] struct{ Item T }

	// Created appends a record.
	Created[T any] struct{ Item T }

	// Updated replaces the record with the same id, in items and selection.
	Updated[T any] struct{ Item T }

	// Deleted removes the record with ID.
	Deleted struct{ ID string }

	FiltersSet[F any] struct{ Filters F }
	FiltersCleared    struct{}
	SortSet           struct{ Sort query.Sort }
	SelectionCleared  struct{}
	ErrorCleared      struct{}
)

func (Started) event()          {}
func (Failed) event()           {}
func (Settled) event()          {}
func (Loaded[T]) event()        {}
func (Selected[T]) event()      {}
func (Created[T]) event()       {}
func (Updated[T]) event()       {}
func (Deleted) event()          {}
func (FiltersSet[F]) event()    {}
func (FiltersCleared) event()   {}
func (SortSet) event()          {}
func (SelectionCleared) event() {}
func (ErrorCleared) event()     {}
