// Package memory keeps the ledger in process memory, for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"granabox/internal/sheets"
)

var _ sheets.LedgerWriter = (*Ledger)(nil)

type Ledger struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
}

func New() *Ledger {
	return &Ledger{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (l *Ledger) AppendRow(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.EventID == "" {
		return "", fmt.Errorf("append row: missing event id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, row)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of the stored rows in append order.
func (l *Ledger) Rows() []sheets.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.LedgerRow(nil), l.rows...)
}
