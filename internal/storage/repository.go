// Package storage keeps local state: the session token and the journal of
// remote-sync outcomes.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"billdesk/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const defaultSession = "default"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Token returns the stored session token, or "" when none is stored.
func (r *SQLiteRepository) Token(ctx context.Context) (string, error) {
	s, err := r.queries.GetSession(ctx, defaultSession)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return s.Token, nil
}

func (r *SQLiteRepository) SaveToken(ctx context.Context, token string) error {
	err := r.queries.UpsertSession(ctx, UpsertSessionParams{
		Name:      defaultSession,
		Token:     token,
		UpdatedAt: r.now().UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	slog.InfoContext(ctx, "Session token stored")
	return nil
}

func (r *SQLiteRepository) ClearToken(ctx context.Context) error {
	if err := r.queries.DeleteSession(ctx, defaultSession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	slog.InfoContext(ctx, "Session token cleared")
	return nil
}

// AppendSync adds one sync outcome to the journal.
func (r *SQLiteRepository) AppendSync(ctx context.Context, rec core.SyncRecord) error {
	at := rec.At
	if at.IsZero() {
		at = r.now()
	}
	var ok int64
	if rec.OK {
		ok = 1
	}
	err := r.queries.InsertSyncRecord(ctx, InsertSyncRecordParams{
		ID:         rec.ID,
		Entity:     rec.Entity,
		Op:         rec.Op,
		Ok:         ok,
		Message:    rec.Message,
		DurationMs: rec.Duration.Milliseconds(),
		At:         at.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("insert sync record: %w", err)
	}
	return nil
}

// ListSync returns the newest journal entries first. An empty entity lists
// every entity.
func (r *SQLiteRepository) ListSync(ctx context.Context, entity string, limit int) ([]core.SyncRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows []SyncJournal
		err  error
	)
	if entity == "" {
		rows, err = r.queries.ListSyncRecords(ctx, int64(limit))
	} else {
		rows, err = r.queries.ListSyncRecordsByEntity(ctx, ListSyncRecordsByEntityParams{Entity: entity, Limit: int64(limit)})
	}
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}

	out := make([]core.SyncRecord, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timeLayout, row.At)
		if err != nil {
			return nil, fmt.Errorf("parse journal time %q: %w", row.At, err)
		}
		out = append(out, core.SyncRecord{
			ID:       row.ID,
			Entity:   row.Entity,
			Op:       row.Op,
			OK:       row.Ok == 1,
			Message:  row.Message,
			Duration: time.Duration(row.DurationMs) * time.Millisecond,
			At:       at,
		})
	}
	return out, nil
}

// PruneSync deletes journal entries older than age.
func (r *SQLiteRepository) PruneSync(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := r.now().Add(-age).UTC().Format(timeLayout)
	n, err := r.queries.DeleteSyncRecordsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sync records: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pruned sync journal", "removed", n, "older_than", age)
	}
	return n, nil
}
