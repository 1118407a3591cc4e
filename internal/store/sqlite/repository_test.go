package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleTx(owner core.UserID) core.Transaction {
	return core.Transaction{
		Owner:       owner,
		Kind:        core.Expense,
		Description: "Mercado",
		Amount:      core.Money{Cents: 4550},
		Date:        core.NewDate(2024, 3, 5),
		Category:    "Alimentação",
	}
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.InsertTransaction(ctx, sampleTx("user-1"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatal("insert must assign id and created_at")
	}

	listed, err := repo.ListTransactions(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed %d transactions, want the created one", len(listed))
	}
	if listed[0].Amount.Cents != 4550 || listed[0].Date.Format("2006-01-02") != "2024-03-05" {
		t.Fatalf("roundtrip mismatch: %+v", listed[0])
	}

	created.Description = "Mercado do mês"
	updated, err := repo.UpdateTransaction(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "Mercado do mês" {
		t.Fatalf("updated description = %q", updated.Description)
	}

	if err := repo.DeleteTransaction(ctx, created.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID, "user-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTransactionOwnerScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.InsertTransaction(ctx, sampleTx("user-1"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	other := created
	other.Owner = "user-2"
	if _, err := repo.UpdateTransaction(ctx, other); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign update err = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID, "user-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}

	listed, err := repo.ListTransactions(ctx, "user-2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatal("foreign owner must not see the record")
	}

	// The mirror worker fetches across owners.
	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != "user-1" {
		t.Fatalf("owner = %q", got.Owner)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, _ := repo.InsertTransaction(ctx, sampleTx("user-1"))
	b, _ := repo.InsertTransaction(ctx, sampleTx("user-1"))

	pending, err := repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := repo.MarkSynced(ctx, a.ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, b.ID); err != nil {
		t.Fatalf("mark sync error: %v", err)
	}

	pending, err = repo.ListPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after bookkeeping = %d, want 0", len(pending))
	}

	// An update re-queues the record for mirroring.
	a.Description = "Alterado"
	if _, err := repo.UpdateTransaction(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = repo.ListPendingSync(ctx, 10)
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("pending after update = %v, want the updated record", pending)
	}
}

func TestGoalNullableFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bare, err := repo.InsertGoal(ctx, core.Goal{
		Owner:   "user-1",
		Name:    "Reserva",
		Target:  core.Money{Cents: 100000},
		Current: core.Money{Cents: 0},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	listed, err := repo.ListGoals(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d goals", len(listed))
	}
	if !listed[0].Deadline.IsEmpty() || listed[0].CompletedAt != nil {
		t.Fatalf("nullable fields not null: %+v", listed[0])
	}

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	bare.Deadline = core.NewDate(2024, 12, 31)
	bare.Current = core.Money{Cents: 100000}
	bare.CompletedAt = &now

	updated, err := repo.UpdateGoal(ctx, bare)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Deadline.Format("2006-01-02") != "2024-12-31" {
		t.Fatalf("deadline roundtrip = %v", updated.Deadline)
	}
	if updated.CompletedAt == nil || !updated.CompletedAt.Equal(now) {
		t.Fatalf("completed_at roundtrip = %v", updated.CompletedAt)
	}
}

func TestChallengeCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.InsertChallenge(ctx, core.Challenge{
		Owner:       "user-1",
		Description: "Semana sem delivery",
		Status:      core.StatusPending,
		Week:        "2024-10",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	created.Status = core.StatusCompleted
	created.CompletedAt = &now

	updated, err := repo.UpdateChallenge(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != core.StatusCompleted || updated.CompletedAt == nil {
		t.Fatalf("update roundtrip = %+v", updated)
	}

	if err := repo.DeleteChallenge(ctx, created.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	listed, err := repo.ListChallenges(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatal("deleted challenge still listed")
	}
}
