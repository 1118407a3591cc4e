// Package memory implements the store ports on mutex-guarded maps.
// Used as the dev backend and in container tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/store"
)

type Store struct {
	mu           sync.Mutex
	transactions map[string]core.Transaction
	goals        map[string]core.Goal
	challenges   map[string]core.Challenge
	clock        func() time.Time
}

var (
	_ store.TransactionStore = (*Store)(nil)
	_ store.GoalStore        = (*Store)(nil)
	_ store.ChallengeStore   = (*Store)(nil)
)

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		goals:        make(map[string]core.Goal),
		challenges:   make(map[string]core.Challenge),
		clock:        time.Now,
	}
}

// SetClock overrides the creation-timestamp source. Test hook.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Stores returns the store wired as the three record-kind ports.
func (s *Store) Stores() store.Stores {
	return store.Stores{Transactions: s, Goals: s, Challenges: s}
}

func (s *Store) ListTransactions(_ context.Context, owner core.UserID) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	sortNewestFirst(out, func(t core.Transaction) time.Time { return t.CreatedAt })
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.clock().UTC()
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.transactions[t.ID]
	if !ok || prev.Owner != t.Owner {
		return core.Transaction{}, store.ErrNotFound
	}
	t.CreatedAt = prev.CreatedAt
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string, owner core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.Owner != owner {
		return store.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListGoals(_ context.Context, owner core.UserID) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Goal
	for _, g := range s.goals {
		if g.Owner == owner {
			out = append(out, g)
		}
	}
	sortNewestFirst(out, func(g core.Goal) time.Time { return g.CreatedAt })
	return out, nil
}

func (s *Store) InsertGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = s.clock().UTC()
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.goals[g.ID]
	if !ok || prev.Owner != g.Owner {
		return core.Goal{}, store.ErrNotFound
	}
	g.CreatedAt = prev.CreatedAt
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string, owner core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok || g.Owner != owner {
		return store.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) ListChallenges(_ context.Context, owner core.UserID) ([]core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Challenge
	for _, c := range s.challenges {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	sortNewestFirst(out, func(c core.Challenge) time.Time { return c.CreatedAt })
	return out, nil
}

func (s *Store) InsertChallenge(_ context.Context, c core.Challenge) (core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.clock().UTC()
	s.challenges[c.ID] = c
	return c, nil
}

func (s *Store) UpdateChallenge(_ context.Context, c core.Challenge) (core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.challenges[c.ID]
	if !ok || prev.Owner != c.Owner {
		return core.Challenge{}, store.ErrNotFound
	}
	c.CreatedAt = prev.CreatedAt
	s.challenges[c.ID] = c
	return c, nil
}

func (s *Store) DeleteChallenge(_ context.Context, id string, owner core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok || c.Owner != owner {
		return store.ErrNotFound
	}
	delete(s.challenges, id)
	return nil
}

// sortNewestFirst orders records by creation time descending.
func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
