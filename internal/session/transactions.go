package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/store"
)

// TransactionInput carries the user-editable fields of a transaction;
// id and creation timestamp are assigned by the store.
type TransactionInput struct {
	Kind        core.TransactionKind
	Description string
	Amount      core.Money
	Date        core.Date
	Category    string
}

// Transactions is the per-user transaction container: an in-memory
// list ordered most-recent-first, written through to the store.
type Transactions struct {
	mu        sync.RWMutex
	owner     core.UserID
	store     store.TransactionStore
	publisher Publisher
	gen       uint64
	items     []core.Transaction
}

func newTransactions(st store.TransactionStore, publisher Publisher, owner core.UserID) *Transactions {
	return &Transactions{owner: owner, store: st, publisher: publisher}
}

// Reload replaces the in-memory list with the store's view. A reload
// that completes after Reset has run (identity switched away) is
// discarded instead of overwriting the newer state.
func (c *Transactions) Reload(ctx context.Context) error {
	if c.owner == "" {
		c.Reset()
		return nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	list, err := c.store.ListTransactions(ctx, c.owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load transactions", log.FieldOwner, c.owner, log.FieldError, err)
		return fmt.Errorf("load transactions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		slog.WarnContext(ctx, "discarding stale transaction reload", log.FieldOwner, c.owner)
		return nil
	}
	c.items = list
	return nil
}

// Reset clears the list and invalidates in-flight reloads.
func (c *Transactions) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
}

// Add validates and persists a new transaction, then prepends the
// stored record to the in-memory list.
func (c *Transactions) Add(ctx context.Context, input TransactionInput) (core.Transaction, error) {
	t := core.Transaction{
		Owner:       c.owner,
		Kind:        input.Kind,
		Description: input.Description,
		Amount:      input.Amount,
		Date:        input.Date,
		Category:    input.Category,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	stored, err := c.store.InsertTransaction(ctx, t)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add transaction", log.FieldOwner, c.owner, log.FieldError, err)
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	c.mu.Lock()
	c.items = append([]core.Transaction{stored}, c.items...)
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindTransaction, events.OpCreated, stored.ID, c.owner)
	return stored, nil
}

// Update persists a full replacement of the record's mutable fields and
// reconciles the in-memory entry. Ids not owned by this user fail with
// a logged error and no state change.
func (c *Transactions) Update(ctx context.Context, id string, input TransactionInput) (core.Transaction, error) {
	t := core.Transaction{
		ID:          id,
		Owner:       c.owner,
		Kind:        input.Kind,
		Description: input.Description,
		Amount:      input.Amount,
		Date:        input.Date,
		Category:    input.Category,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	stored, err := c.store.UpdateTransaction(ctx, t)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update transaction", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = stored
			break
		}
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindTransaction, events.OpUpdated, stored.ID, c.owner)
	return stored, nil
}

// Delete removes the record from the store and, on success, from the
// in-memory list.
func (c *Transactions) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteTransaction(ctx, id, c.owner); err != nil {
		slog.ErrorContext(ctx, "failed to delete transaction", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return fmt.Errorf("delete transaction: %w", err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindTransaction, events.OpDeleted, id, c.owner)
	return nil
}

// All returns a copy of the in-memory list, most recent first.
func (c *Transactions) All() []core.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Transaction(nil), c.items...)
}

// Balance is the signed sum over all transactions in the list.
func (c *Transactions) Balance() core.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Balance(c.items)
}

// ByKind filters the list by transaction kind.
func (c *Transactions) ByKind(kind core.TransactionKind) []core.Transaction {
	return c.filter(func(t core.Transaction) bool { return t.Kind == kind })
}

// ByMonth filters by the transaction date's YYYY-MM key.
func (c *Transactions) ByMonth(month string) []core.Transaction {
	return c.filter(func(t core.Transaction) bool { return core.MonthKey(t.Date) == month })
}

// ByCategory filters by category name.
func (c *Transactions) ByCategory(category string) []core.Transaction {
	return c.filter(func(t core.Transaction) bool { return t.Category == category })
}

// Summary aggregates the given month from the in-memory list.
func (c *Transactions) Summary(month string) core.MonthSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Summarize(month, c.items)
}

// Categories returns the fixed category list for UI population.
func (c *Transactions) Categories() []string {
	return append([]string(nil), core.Categories...)
}

func (c *Transactions) filter(keep func(core.Transaction) bool) []core.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []core.Transaction
	for _, t := range c.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
