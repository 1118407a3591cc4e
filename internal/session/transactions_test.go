package session

import (
	"context"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/store"
	"financas/internal/store/memory"
)

func testSession(t *testing.T, owner core.UserID, opts ...Option) (*Session, *memory.Store) {
	t.Helper()
	mem := memory.New()
	s := New(mem.Stores(), nil, owner, opts...)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("initial reload: %v", err)
	}
	return s, mem
}

func addTx(t *testing.T, s *Session, kind core.TransactionKind, cents int64, date core.Date) core.Transaction {
	t.Helper()
	tx, err := s.Transactions.Add(context.Background(), TransactionInput{
		Kind:        kind,
		Description: "teste",
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Category:    "Outros",
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return tx
}

func TestTransactionsBalance(t *testing.T) {
	s, _ := testSession(t, "user-1")

	if got := s.Transactions.Balance(); got.Cents != 0 {
		t.Fatalf("empty balance = %d, want 0", got.Cents)
	}

	addTx(t, s, core.Income, 10000, core.NewDate(2024, 3, 5))
	addTx(t, s, core.Expense, 4000, core.NewDate(2024, 3, 10))

	if got := s.Transactions.Balance(); got.Cents != 6000 {
		t.Fatalf("balance = %d, want 6000", got.Cents)
	}
}

func TestTransactionsAddPrepends(t *testing.T) {
	s, _ := testSession(t, "user-1")

	first := addTx(t, s, core.Income, 100, core.NewDate(2024, 1, 1))
	second := addTx(t, s, core.Expense, 200, core.NewDate(2024, 1, 2))

	all := s.Transactions.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatal("expected most-recent-first order")
	}
	if second.ID == "" || second.CreatedAt.IsZero() {
		t.Fatal("store should assign id and creation timestamp")
	}
}

func TestTransactionsByMonth(t *testing.T) {
	s, _ := testSession(t, "user-1")

	march := addTx(t, s, core.Expense, 100, core.NewDate(2024, 3, 5))
	addTx(t, s, core.Expense, 100, core.NewDate(2024, 4, 1))

	got := s.Transactions.ByMonth("2024-03")
	if len(got) != 1 || got[0].ID != march.ID {
		t.Fatalf("ByMonth returned %d records, want only the March one", len(got))
	}
}

func TestTransactionsFilters(t *testing.T) {
	s, _ := testSession(t, "user-1")

	income, err := s.Transactions.Add(context.Background(), TransactionInput{
		Kind: core.Income, Description: "salário", Amount: core.Money{Cents: 500000},
		Date: core.NewDate(2024, 3, 1), Category: "Salário",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	expense, err := s.Transactions.Add(context.Background(), TransactionInput{
		Kind: core.Expense, Description: "mercado", Amount: core.Money{Cents: 30000},
		Date: core.NewDate(2024, 3, 2), Category: "Alimentação",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := s.Transactions.ByKind(core.Income); len(got) != 1 || got[0].ID != income.ID {
		t.Fatal("ByKind(income) should return only the income record")
	}
	if got := s.Transactions.ByCategory("Alimentação"); len(got) != 1 || got[0].ID != expense.ID {
		t.Fatal("ByCategory should return only the matching record")
	}
}

func TestTransactionsUpdateReconciles(t *testing.T) {
	s, _ := testSession(t, "user-1")
	tx := addTx(t, s, core.Expense, 1000, core.NewDate(2024, 3, 5))

	updated, err := s.Transactions.Update(context.Background(), tx.ID, TransactionInput{
		Kind: core.Expense, Description: "atualizado", Amount: core.Money{Cents: 2000},
		Date: core.NewDate(2024, 3, 6), Category: "Lazer",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "atualizado" || updated.Amount.Cents != 2000 {
		t.Fatalf("unexpected updated record: %+v", updated)
	}

	all := s.Transactions.All()
	if len(all) != 1 || all[0].Description != "atualizado" {
		t.Fatal("in-memory entry should reflect the update")
	}
}

func TestTransactionsForeignOwnerDelete(t *testing.T) {
	mem := memory.New()
	mine := New(mem.Stores(), nil, "user-1")
	other := New(mem.Stores(), nil, "user-2")

	theirs := addTx(t, other, core.Income, 100, core.NewDate(2024, 3, 5))
	addTx(t, mine, core.Expense, 50, core.NewDate(2024, 3, 5))

	if err := mine.Transactions.Delete(context.Background(), theirs.ID); err == nil {
		t.Fatal("deleting a foreign-owner id should fail")
	}
	if got := mine.Transactions.All(); len(got) != 1 {
		t.Fatalf("own list changed: %d records", len(got))
	}
	if got := other.Transactions.All(); len(got) != 1 {
		t.Fatalf("foreign list changed: %d records", len(got))
	}
}

func TestTransactionsForeignOwnerUpdate(t *testing.T) {
	mem := memory.New()
	mine := New(mem.Stores(), nil, "user-1")
	other := New(mem.Stores(), nil, "user-2")

	theirs := addTx(t, other, core.Income, 100, core.NewDate(2024, 3, 5))

	_, err := mine.Transactions.Update(context.Background(), theirs.ID, TransactionInput{
		Kind: core.Expense, Description: "roubo", Amount: core.Money{Cents: 1},
		Date: core.NewDate(2024, 3, 5), Category: "Outros",
	})
	if err == nil {
		t.Fatal("updating a foreign-owner id should fail")
	}
}

func TestTransactionsValidationRejected(t *testing.T) {
	s, _ := testSession(t, "user-1")

	_, err := s.Transactions.Add(context.Background(), TransactionInput{
		Kind: core.Expense, Description: "inválida", Amount: core.Money{Cents: 0},
		Date: core.NewDate(2024, 3, 5), Category: "Outros",
	})
	if err == nil {
		t.Fatal("zero amount should be rejected")
	}
	if len(s.Transactions.All()) != 0 {
		t.Fatal("rejected input must not touch the list")
	}
}

func TestTransactionsCategoriesFixed(t *testing.T) {
	s, _ := testSession(t, "user-1")
	cats := s.Transactions.Categories()
	if len(cats) != len(core.Categories) {
		t.Fatalf("categories = %d entries, want %d", len(cats), len(core.Categories))
	}
	cats[0] = "mutated"
	if core.Categories[0] == "mutated" {
		t.Fatal("Categories must return a copy")
	}
}

// blockingTransactionStore delays ListTransactions until released,
// simulating a slow reload racing an identity switch.
type blockingTransactionStore struct {
	store.TransactionStore
	release chan struct{}
}

func (s *blockingTransactionStore) ListTransactions(ctx context.Context, owner core.UserID) ([]core.Transaction, error) {
	<-s.release
	return s.TransactionStore.ListTransactions(ctx, owner)
}

func TestTransactionsStaleReloadDiscarded(t *testing.T) {
	mem := memory.New()
	seed := New(mem.Stores(), nil, "user-1")
	addTx(t, seed, core.Income, 100, core.NewDate(2024, 3, 5))

	blocking := &blockingTransactionStore{
		TransactionStore: mem,
		release:          make(chan struct{}),
	}
	stores := mem.Stores()
	stores.Transactions = blocking
	s := New(stores, nil, "user-1")

	done := make(chan error, 1)
	go func() { done <- s.Transactions.Reload(context.Background()) }()

	// Identity switches away while the reload is in flight.
	s.Transactions.Reset()
	close(blocking.release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not finish")
	}

	if got := s.Transactions.All(); len(got) != 0 {
		t.Fatalf("stale reload overwrote reset state: %d records", len(got))
	}
}
