package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billdesk/internal/amqp"
	gsheet "billdesk/internal/sheets/google"
	"billdesk/internal/sheets/memory"
	"billdesk/internal/storage"
)

// memoryJournalLimit bounds the in-process journal.
const memoryJournalLimit = 500

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. A broker that cannot be
// reached is logged and skipped; every other failure is returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	state, err := f.createState(config)
	if err != nil {
		return nil, err
	}

	reports, err := f.createReports(ctx, config)
	if err != nil {
		state.Close()
		return nil, err
	}

	var events *amqp.Client
	if config.AMQPURL != "" {
		events, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result := &BackendResult{State: state, Reports: reports}
	if events != nil {
		result.Events = events
	}
	result.Cleanup = func() error {
		var errs []error
		if events != nil {
			errs = append(errs, events.Close())
		}
		errs = append(errs, state.Close())
		return errors.Join(errs...)
	}
	return result, nil
}

func (f *DefaultFactory) createState(config Config) (LocalState, error) {
	switch config.Session {
	case SessionSQLite:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite session store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case SessionMemory:
		f.logger.Info("Initialized memory session store")
		return storage.NewMemoryStore(memoryJournalLimit), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", config.Session)
	}
}

func (f *DefaultFactory) createReports(ctx context.Context, config Config) (Reports, error) {
	switch config.Export {
	case ExportSheets:
		cli, err := gsheet.Open(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			ReportSheet:     config.GoogleReportSheet,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets export")
		return cli, nil
	case ExportMemory:
		f.logger.Info("Initialized memory export")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", config.Export)
	}
}
