package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Session struct {
	Name      string
	Token     string
	UpdatedAt string
}

type SyncJournal struct {
	ID         string
	Entity     string
	Op         string
	Ok         int64
	Message    string
	DurationMs int64
	At         string
}

const getSession = `-- name: GetSession :one
SELECT name, token, updated_at FROM sessions WHERE name = ?
`

func (q *Queries) GetSession(ctx context.Context, name string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, name)
	var i Session
	err := row.Scan(&i.Name, &i.Token, &i.UpdatedAt)
	return i, err
}

const upsertSession = `-- name: UpsertSession :exec
INSERT INTO sessions (name, token, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
`

type UpsertSessionParams struct {
	Name      string
	Token     string
	UpdatedAt string
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession, arg.Name, arg.Token, arg.UpdatedAt)
	return err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE name = ?
`

func (q *Queries) DeleteSession(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, name)
	return err
}

const insertSyncRecord = `-- name: InsertSyncRecord :exec
INSERT INTO sync_journal (id, entity, op, ok, message, duration_ms, at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type InsertSyncRecordParams struct {
	ID         string
	Entity     string
	Op         string
	Ok         int64
	Message    string
	DurationMs int64
	At         string
}

func (q *Queries) InsertSyncRecord(ctx context.Context, arg InsertSyncRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertSyncRecord,
		arg.ID, arg.Entity, arg.Op, arg.Ok, arg.Message, arg.DurationMs, arg.At)
	return err
}

const listSyncRecords = `-- name: ListSyncRecords :many
SELECT id, entity, op, ok, message, duration_ms, at FROM sync_journal
ORDER BY at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListSyncRecords(ctx context.Context, limit int64) ([]SyncJournal, error) {
	return q.scanSyncRecords(ctx, listSyncRecords, limit)
}

const listSyncRecordsByEntity = `-- name: ListSyncRecordsByEntity :many
SELECT id, entity, op, ok, message, duration_ms, at FROM sync_journal
WHERE entity = ?
ORDER BY at DESC, id DESC
LIMIT ?
`

type ListSyncRecordsByEntityParams struct {
	Entity string
	Limit  int64
}

func (q *Queries) ListSyncRecordsByEntity(ctx context.Context, arg ListSyncRecordsByEntityParams) ([]SyncJournal, error) {
	return q.scanSyncRecords(ctx, listSyncRecordsByEntity, arg.Entity, arg.Limit)
}

func (q *Queries) scanSyncRecords(ctx context.Context, query string, args ...interface{}) ([]SyncJournal, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncJournal
	for rows.Next() {
		var i SyncJournal
		if err := rows.Scan(&i.ID, &i.Entity, &i.Op, &i.Ok, &i.Message, &i.DurationMs, &i.At); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteSyncRecordsBefore = `-- name: DeleteSyncRecordsBefore :execrows
DELETE FROM sync_journal WHERE at < ?
`

func (q *Queries) DeleteSyncRecordsBefore(ctx context.Context, at string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSyncRecordsBefore, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
