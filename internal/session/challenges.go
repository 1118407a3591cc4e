package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/store"
)

// weeklySuggestions is the curated pool GenerateWeekly draws from.
var weeklySuggestions = []string{
	"Economize R$ 50 esta semana cortando gastos desnecessários",
	"Não compre nada por impulso durante 7 dias",
	"Cozinhe todas as refeições em casa esta semana",
	"Cancele uma assinatura que você não usa",
	"Venda algo que não precisa mais",
	"Use transporte público ou caminhe ao invés de usar carro/uber",
	"Não gaste com delivery esta semana",
	"Faça um levantamento de todos os seus gastos fixos",
	"Negocie uma conta ou serviço para conseguir desconto",
	"Guarde todas as moedas que receber de troco",
	"Evite compras no supermercado além da lista",
	"Procure cupons de desconto antes de qualquer compra",
	"Organize suas finanças e elimine gastos duplicados",
	"Invista pelo menos R$ 20 em algum investimento",
	"Compare preços antes de fazer qualquer compra acima de R$ 30",
}

func defaultRand(n int) int {
	return rand.IntN(n)
}

// Challenges is the per-user weekly-challenge container. Besides the
// plain list it tracks a pointer to the challenge whose week key
// matches the current week.
type Challenges struct {
	mu        sync.RWMutex
	owner     core.UserID
	store     store.ChallengeStore
	publisher Publisher
	clock     func() time.Time
	rand      func(n int) int
	gen       uint64
	items     []core.Challenge
	current   *core.Challenge
}

func newChallenges(st store.ChallengeStore, publisher Publisher, owner core.UserID, clock func() time.Time, randFn func(n int) int) *Challenges {
	return &Challenges{owner: owner, store: st, publisher: publisher, clock: clock, rand: randFn}
}

// CurrentWeek returns the YYYY-WW key for today.
func (c *Challenges) CurrentWeek() string {
	return core.WeekKeyAt(c.clock())
}

// Reload replaces the in-memory list and refreshes the current-week
// pointer, discarding responses that lost a race with Reset.
func (c *Challenges) Reload(ctx context.Context) error {
	if c.owner == "" {
		c.Reset()
		return nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	list, err := c.store.ListChallenges(ctx, c.owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load challenges", log.FieldOwner, c.owner, log.FieldError, err)
		return fmt.Errorf("load challenges: %w", err)
	}

	week := c.CurrentWeek()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		slog.WarnContext(ctx, "discarding stale challenge reload", log.FieldOwner, c.owner)
		return nil
	}
	c.items = list
	c.refreshCurrentLocked(week)
	return nil
}

// Reset clears the list and invalidates in-flight reloads.
func (c *Challenges) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = nil
	c.current = nil
}

// Add validates and persists a challenge, prepends it and refreshes the
// current-week pointer if the new record lands in the current week.
func (c *Challenges) Add(ctx context.Context, description string, status core.ChallengeStatus, week string) (core.Challenge, error) {
	ch := core.Challenge{
		Owner:       c.owner,
		Description: description,
		Status:      status,
		Week:        week,
	}
	if err := ch.Validate(); err != nil {
		return core.Challenge{}, err
	}

	stored, err := c.store.InsertChallenge(ctx, ch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add challenge", log.FieldOwner, c.owner, log.FieldError, err)
		return core.Challenge{}, fmt.Errorf("add challenge: %w", err)
	}

	currentWeek := c.CurrentWeek()
	c.mu.Lock()
	c.items = append([]core.Challenge{stored}, c.items...)
	if stored.Week == currentWeek {
		cp := stored
		c.current = &cp
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindChallenge, events.OpCreated, stored.ID, c.owner)
	return stored, nil
}

// GenerateWeekly creates this week's challenge from the suggestion pool
// with a uniformly random pick. Idempotent per week key: if a challenge
// for the current week already exists it is returned unchanged.
func (c *Challenges) GenerateWeekly(ctx context.Context) (core.Challenge, error) {
	week := c.CurrentWeek()

	c.mu.RLock()
	for _, ch := range c.items {
		if ch.Week == week {
			c.mu.RUnlock()
			return ch, nil
		}
	}
	c.mu.RUnlock()

	description := weeklySuggestions[c.rand(len(weeklySuggestions))]
	return c.Add(ctx, description, core.StatusPending, week)
}

// UpdateStatus persists a status change. Transitioning into completed
// stamps the completion time once; the pointer for the current week is
// refreshed when the updated record's week matches.
func (c *Challenges) UpdateStatus(ctx context.Context, id string, status core.ChallengeStatus) (core.Challenge, error) {
	if !status.IsValid() {
		return core.Challenge{}, core.ErrInvalidStatus
	}

	prior, ok := c.find(id)
	if !ok {
		slog.ErrorContext(ctx, "challenge not in session", log.FieldOwner, c.owner, log.FieldRecordID, id)
		return core.Challenge{}, store.ErrNotFound
	}

	ch := prior
	ch.Status = status
	if status == core.StatusCompleted && ch.CompletedAt == nil {
		ts := c.clock()
		ch.CompletedAt = &ts
	}

	stored, err := c.store.UpdateChallenge(ctx, ch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update challenge status", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return core.Challenge{}, fmt.Errorf("update challenge status: %w", err)
	}

	currentWeek := c.CurrentWeek()
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = stored
			break
		}
	}
	if stored.Week == currentWeek {
		cp := stored
		c.current = &cp
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindChallenge, events.OpUpdated, stored.ID, c.owner)
	return stored, nil
}

// Delete removes the challenge from the store and the in-memory list,
// clearing the current-week pointer if it pointed at the removed record.
func (c *Challenges) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteChallenge(ctx, id, c.owner); err != nil {
		slog.ErrorContext(ctx, "failed to delete challenge", log.FieldOwner, c.owner, log.FieldRecordID, id, log.FieldError, err)
		return fmt.Errorf("delete challenge: %w", err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	if c.current != nil && c.current.ID == id {
		c.current = nil
	}
	c.mu.Unlock()

	publish(ctx, c.publisher, events.KindChallenge, events.OpDeleted, id, c.owner)
	return nil
}

// All returns a copy of the in-memory list, most recent first.
func (c *Challenges) All() []core.Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Challenge(nil), c.items...)
}

// ByWeek filters by week key.
func (c *Challenges) ByWeek(week string) []core.Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []core.Challenge
	for _, ch := range c.items {
		if ch.Week == week {
			out = append(out, ch)
		}
	}
	return out
}

// CurrentWeekChallenge returns a copy of the challenge for the current
// week, or nil when none exists.
func (c *Challenges) CurrentWeekChallenge() *core.Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

func (c *Challenges) find(id string) (core.Challenge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.items {
		if ch.ID == id {
			return ch, true
		}
	}
	return core.Challenge{}, false
}

// refreshCurrentLocked recomputes the current-week pointer from items.
// Caller holds the write lock.
func (c *Challenges) refreshCurrentLocked(week string) {
	c.current = nil
	for _, ch := range c.items {
		if ch.Week == week {
			cp := ch
			c.current = &cp
			return
		}
	}
}
