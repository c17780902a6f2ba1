package memory

import (
	"context"
	"sync"

	ports "billdesk/internal/sheets"
)

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportReader = (*Store)(nil)
)

// Store keeps the last written report in process.
type Store struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

func New() *Store {
	return &Store{}
}

// WriteReport replaces the stored report with a copy of rows.
func (s *Store) WriteReport(_ context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = copyRows(rows)
	s.writes++
	return nil
}

func (s *Store) ReadReport(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows), nil
}

// Writes reports how many times the report was written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
