// Package memory is an in-process mirror used in tests and local
// development when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bolso/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows []export.Row
}

var (
	_ export.RowAppender = (*Store)(nil)
	_ export.RowDeleter  = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Delete removes the row for the given transaction id. Absent rows are
// not an error, matching the spreadsheet adapter.
func (s *Store) Delete(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.TransactionID == transactionID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}
