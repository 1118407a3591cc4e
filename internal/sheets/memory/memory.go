// Package memory holds an in-process ledger used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"financas/internal/core"
)

type Ledger struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Transaction
}

func New() *Ledger {
	return &Ledger{rows: make(map[string]core.Transaction)}
}

// Append stores the transaction row and returns a synthetic row reference.
func (l *Ledger) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.rows[t.ID]; !exists {
		l.order = append(l.order, t.ID)
	}
	l.rows[t.ID] = t
	return fmt.Sprintf("mem:%d", len(l.order)), nil
}

// Delete removes the row for id. Missing rows are ignored.
func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.rows[id]; !exists {
		return nil
	}
	delete(l.rows, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored transactions in append order.
func (l *Ledger) Rows() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.rows[id])
	}
	return out
}
