package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/store"
)

// GoalInput carries the user-editable fields of a savings goal.
type GoalInput struct {
	Name     string
	Target   core.Money
	Current  core.Money
	Deadline core.Date // zero means no deadline
}

// Goals is the per-user savings-goal container. Every mutator derives
// the completion timestamp through core.DeriveCompletion so the stored
// stamp never disagrees with the current/target comparison.
type Goals struct {
	mu        sync.RWMutex
	owner     core.UserID
	store     store.GoalStore
	publisher Publisher
	clock     func() time.Time
	gen       uint64
	items     []core.Goal
}

func newGoals(st store.GoalStore, publisher Publisher, owner core.UserID, clock func() time.Time) *Goals {
	return &Goals{owner: owner, store: st, publisher: publisher, clock: clock}
}

// Reload replaces the in-memory list with the store's view, discarding
// responses that lost a race with Reset.
func (c *Goals) Reload(ctx context.Context) error {
	if c.owner == "" {
		c.Reset()
		return nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	list, err := c.store.ListGoals(ctx, c.owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load goals", log.FieldOwner, c.owner, log.FieldError, err)
		return fmt.Errorf("load goals: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		slog.WarnContext(ctx, "discarding stale goal reload", log.FieldOwner, c.owner)
		return nil
	}
	c.items = list
	return nil
}

// Reset clears the list and invalidates in-flight reloads.
func (c *Goals) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
}

// Add validates and persists a new goal. A goal created already at or
// past its target gets its completion stamp immediately.
func (c *Goals) Add(ctx context.Context, input GoalInput) (core.Goal, error) {
	g := core.Goal{
		Owner:    c.owner,
		Name:     input.Name,
		Target:   input.Target,
		Current:  input.Current,
		Deadline: input.Deadline,
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	g.CompletedAt = core.DeriveCompletion(g.Current, g.Target, nil, c.clock())

	stored, err := c.store.InsertGoal(ctx, g)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add goal", log.FieldOwner, c.owner, log.FieldError, err)
		return core.Goal{}, fmt.Errorf("add goal: %w", err)
	}

	c.mu.Lock()
	c.items = append([]core.Goal{stored}, c.items...)
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindGoal, events.OpCreated, stored.ID, c.owner)
	return stored, nil
}

// Update persists a full replacement of the goal's mutable fields,
// re-deriving the completion stamp against the prior one.
func (c *Goals) Update(ctx context.Context, id string, input GoalInput) (core.Goal, error) {
	prior, ok := c.find(id)
	if !ok {
		slog.ErrorContext(ctx, "goal not in session", log.FieldOwner, c.owner, log.FieldRecordID, id)
		return core.Goal{}, store.ErrNotFound
	}

	g := core.Goal{
		ID:       id,
		Owner:    c.owner,
		Name:     input.Name,
		Target:   input.Target,
		Current:  input.Current,
		Deadline: input.Deadline,
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	g.CompletedAt = core.DeriveCompletion(g.Current, g.Target, prior.CompletedAt, c.clock())

	stored, err := c.store.UpdateGoal(ctx, g)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update goal", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}

	c.replace(stored)
	publish(ctx, c.publisher, events.KindGoal, events.OpUpdated, stored.ID, c.owner)
	return stored, nil
}

// UpdateProgress sets the goal's current amount and recomputes the
// completion stamp: stamped once when newly crossing the target,
// cleared when dropping back below it, untouched otherwise.
func (c *Goals) UpdateProgress(ctx context.Context, id string, current core.Money) (core.Goal, error) {
	prior, ok := c.find(id)
	if !ok {
		slog.ErrorContext(ctx, "goal not in session", log.FieldOwner, c.owner, log.FieldRecordID, id)
		return core.Goal{}, store.ErrNotFound
	}
	if current.Cents < 0 {
		return core.Goal{}, core.ErrNegativeCurrent
	}

	g := prior
	g.Current = current
	g.CompletedAt = core.DeriveCompletion(g.Current, g.Target, prior.CompletedAt, c.clock())

	stored, err := c.store.UpdateGoal(ctx, g)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update goal progress", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return core.Goal{}, fmt.Errorf("update goal progress: %w", err)
	}

	c.replace(stored)
	publish(ctx, c.publisher, events.KindGoal, events.OpUpdated, stored.ID, c.owner)
	return stored, nil
}

// Delete removes the goal from the store and the in-memory list.
func (c *Goals) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteGoal(ctx, id, c.owner); err != nil {
		slog.ErrorContext(ctx, "failed to delete goal", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return fmt.Errorf("delete goal: %w", err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindGoal, events.OpDeleted, id, c.owner)
	return nil
}

// All returns a copy of the in-memory list, most recent first.
func (c *Goals) All() []core.Goal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Goal(nil), c.items...)
}

// Completed returns goals carrying a completion stamp.
func (c *Goals) Completed() []core.Goal {
	return c.filter(func(g core.Goal) bool { return g.CompletedAt != nil })
}

// Active returns goals without a completion stamp.
func (c *Goals) Active() []core.Goal {
	return c.filter(func(g core.Goal) bool { return g.CompletedAt == nil })
}

func (c *Goals) find(id string) (core.Goal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.items {
		if g.ID == id {
			return g, true
		}
	}
	return core.Goal{}, false
}

func (c *Goals) replace(stored core.Goal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == stored.ID {
			c.items[i] = stored
			return
		}
	}
}

func (c *Goals) filter(keep func(core.Goal) bool) []core.Goal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []core.Goal
	for _, g := range c.items {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
