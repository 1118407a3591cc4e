// Package worker keeps the spreadsheet ledger in sync with the primary
// store by consuming record change events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/sheets"
	"financas/internal/store/sqlite"
)

// Storage is the slice of the sqlite repository the mirror needs.
type Storage interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListPendingSync(ctx context.Context, limit int) ([]sqlite.PendingTransaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// MirrorWorker mirrors transaction changes to the ledger.
type MirrorWorker struct {
	storage   Storage
	ledger    sheets.LedgerWriter
	deleter   sheets.LedgerDeleter
	batchSize int
}

func NewMirrorWorker(storage Storage, ledger sheets.LedgerWriter, deleter sheets.LedgerDeleter, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		ledger:    ledger,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleRecordChange processes a single change event. Only transaction
// events reach the ledger; goal and challenge changes are acknowledged
// without side effects.
func (w *MirrorWorker) HandleRecordChange(ctx context.Context, msg *events.RecordChangeMessage) error {
	if msg.Kind != events.KindTransaction {
		return nil
	}

	slog.InfoContext(ctx, "Processing record change",
		log.FieldRecordID, msg.ID,
		log.FieldOperation, msg.Op)

	switch msg.Op {
	case events.OpDeleted:
		return w.handleDelete(ctx, msg.ID)
	case events.OpCreated, events.OpUpdated:
		tx, err := w.storage.GetTransaction(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		// An update replaces the mirrored row instead of appending a
		// duplicate.
		if msg.Op == events.OpUpdated && w.deleter != nil {
			if err := w.deleter.Delete(ctx, msg.ID); err != nil {
				slog.WarnContext(ctx, "Failed to remove stale ledger row", log.FieldRecordID, msg.ID, log.FieldError, err)
			}
		}
		return w.mirrorTransaction(ctx, tx)
	default:
		slog.WarnContext(ctx, "Unknown change op, skipping", log.FieldOperation, msg.Op)
		return nil
	}
}

func (w *MirrorWorker) handleDelete(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No ledger deleter configured, skipping row removal", log.FieldRecordID, id)
		return nil
	}
	if err := w.deleter.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete ledger row: %w", err)
	}
	slog.InfoContext(ctx, "Removed ledger row", log.FieldRecordID, id)
	return nil
}

// ProcessPending mirrors transactions that never made it to the ledger.
// This is a backup mechanism in case change events are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending transaction", log.FieldRecordID, p.ID, log.FieldError, err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", log.FieldRecordID, p.ID, log.FieldError, err)
			}
			continue
		}
		if err := w.mirrorTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction", log.FieldRecordID, p.ID, log.FieldError, err)
			continue
		}
	}
	return nil
}

// StartupCheck sweeps a larger pending batch once at worker startup to
// recover from downtime or missed events.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load transaction for startup sync",
				log.FieldRecordID, p.ID, log.FieldError, err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", log.FieldRecordID, p.ID, log.FieldError, err)
			}
			failed++
			continue
		}
		if err := w.mirrorTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				log.FieldRecordID, p.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *MirrorWorker) mirrorTransaction(ctx context.Context, tx core.Transaction) error {
	ref, err := w.ledger.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", log.FieldRecordID, tx.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, tx.ID); err != nil {
		// The mirror itself succeeded; the pending sweep will retry the
		// bookkeeping.
		slog.ErrorContext(ctx, "Failed to mark as synced", log.FieldRecordID, tx.ID, log.FieldError, err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		log.FieldRecordID, tx.ID,
		"ledger_ref", ref,
		log.FieldAmount, tx.Amount.Cents)
	return nil
}
