package sheets

import (
	"context"

	"financas/internal/core"
)

// Ports for outbound ledger adapters.
type (
	// LedgerWriter appends a transaction row to the mirror ledger.
	LedgerWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// LedgerDeleter removes a mirrored row by transaction id.
	LedgerDeleter interface {
		Delete(ctx context.Context, id string) error
	}
)
