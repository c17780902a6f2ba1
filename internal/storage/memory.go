package storage

import (
	"context"
	"sync"
	"time"

	"billdesk/internal/core"
)

// MemoryStore keeps the session token and a bounded journal in process.
type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	journal []core.SyncRecord
	limit   int
}

// NewMemoryStore keeps at most limit journal entries, oldest dropped first.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 500
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) Token(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *MemoryStore) AppendSync(_ context.Context, rec core.SyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	m.journal = append(m.journal, rec)
	if over := len(m.journal) - m.limit; over > 0 {
		m.journal = append([]core.SyncRecord(nil), m.journal[over:]...)
	}
	return nil
}

// ListSync returns the newest entries first.
func (m *MemoryStore) ListSync(_ context.Context, entity string, limit int) ([]core.SyncRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]core.SyncRecord, 0, limit)
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		if entity == "" || m.journal[i].Entity == entity {
			out = append(out, m.journal[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) PruneSync(_ context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-age)
	kept := m.journal[:0:0]
	for _, rec := range m.journal {
		if !rec.At.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := int64(len(m.journal) - len(kept))
	m.journal = kept
	return removed, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
