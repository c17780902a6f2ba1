package backend

import (
	"context"
	"time"

	"billdesk/internal/api"
	"billdesk/internal/core"
	"billdesk/internal/services"
	"billdesk/internal/sheets"
)

// LocalState is the process-local state: the session token and the journal
// of remote-sync outcomes.
type LocalState interface {
	api.TokenStore
	services.Journal
	ListSync(ctx context.Context, entity string, limit int) ([]core.SyncRecord, error)
	PruneSync(ctx context.Context, age time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Reports is where exported dashboard reports go.
type Reports interface {
	sheets.ReportWriter
	sheets.ReportReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired backends and one cleanup for all of them.
type BackendResult struct {
	State   LocalState
	Reports Reports
	// Events is nil when no broker is configured or reachable.
	Events  services.EventPublisher
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Session SessionType
	Export  ExportType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleReportSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// SessionType selects where local state is kept.
type SessionType string

const (
	SessionSQLite SessionType = "sqlite"
	SessionMemory SessionType = "memory"
)

func (t SessionType) String() string { return string(t) }

func (t SessionType) IsValid() bool {
	switch t {
	case SessionSQLite, SessionMemory:
		return true
	default:
		return false
	}
}

// ExportType selects where reports are written.
type ExportType string

const (
	ExportSheets ExportType = "sheets"
	ExportMemory ExportType = "memory"
)

func (t ExportType) String() string { return string(t) }

func (t ExportType) IsValid() bool {
	switch t {
	case ExportSheets, ExportMemory:
		return true
	default:
		return false
	}
}
