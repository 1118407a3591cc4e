// Package session holds the per-user state containers: in-memory views
// of a user's transactions, goals and challenges, loaded from the store
// and mutated only through their own operations. Containers are created
// with explicit store handles and an owner identity; an identity change
// means discarding one session and building another.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/events"
	"financas/internal/log"
	"financas/internal/store"
)

// Publisher sends record-change messages to the broker. Satisfied by
// *events.Client. A nil publisher disables the change stream.
type Publisher interface {
	PublishRecordChange(ctx context.Context, msg *events.RecordChangeMessage) error
}

// Session bundles one user's three state containers.
type Session struct {
	Owner        core.UserID
	Transactions *Transactions
	Goals        *Goals
	Challenges   *Challenges
}

// Option adjusts session construction.
type Option func(*settings)

type settings struct {
	clock func() time.Time
	rand  func(n int) int
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

// WithRand overrides the random index source used by challenge
// generation. Test hook.
func WithRand(rand func(n int) int) Option {
	return func(s *settings) { s.rand = rand }
}

// New builds a session for owner on top of the given stores. The
// publisher may be nil; mutations then skip the change stream.
func New(stores store.Stores, publisher Publisher, owner core.UserID, opts ...Option) *Session {
	st := settings{clock: time.Now, rand: defaultRand}
	for _, opt := range opts {
		opt(&st)
	}
	return &Session{
		Owner:        owner,
		Transactions: newTransactions(stores.Transactions, publisher, owner),
		Goals:        newGoals(stores.Goals, publisher, owner, st.clock),
		Challenges:   newChallenges(stores.Challenges, publisher, owner, st.clock, st.rand),
	}
}

// Reload fetches all three record kinds concurrently, replacing each
// container's in-memory list. A failure in one kind does not prevent
// the others from loading; the first error is returned.
func (s *Session) Reload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Transactions.Reload(ctx) })
	g.Go(func() error { return s.Goals.Reload(ctx) })
	g.Go(func() error { return s.Challenges.Reload(ctx) })
	return g.Wait()
}

// Reset clears all containers and invalidates any in-flight reloads.
// Called when the session's identity is signed out.
func (s *Session) Reset() {
	s.Transactions.Reset()
	s.Goals.Reset()
	s.Challenges.Reset()
}

// publish sends a change message best-effort: broker failures are
// logged and swallowed so a mutation never fails after the store write
// succeeded.
func publish(ctx context.Context, p Publisher, kind, op, id string, owner core.UserID) {
	if p == nil {
		return
	}
	msg := events.NewRecordChangeMessage(kind, op, id, string(owner))
	if err := p.PublishRecordChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish record change",
			log.FieldRecordKind, kind, log.FieldOperation, op, log.FieldRecordID, id, log.FieldError, err)
	}
}

// Manager hands out sessions keyed by identity and drops them when the
// identity signs out or goes idle.
type Manager struct {
	mu        sync.Mutex
	stores    store.Stores
	publisher Publisher
	opts      []Option
	sessions  map[core.UserID]*managedSession
	idleTTL   time.Duration
}

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

// NewManager creates a session manager. Sessions idle for longer than
// idleTTL are dropped by Sweep.
func NewManager(stores store.Stores, publisher Publisher, idleTTL time.Duration, opts ...Option) *Manager {
	return &Manager{
		stores:    stores,
		publisher: publisher,
		opts:      opts,
		sessions:  make(map[core.UserID]*managedSession),
		idleTTL:   idleTTL,
	}
}

// Get returns the session for owner, creating and loading it on first
// access.
func (m *Manager) Get(ctx context.Context, owner core.UserID) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.sessions[owner]
	if ok {
		entry.lastSeen = time.Now()
		m.mu.Unlock()
		return entry.session, nil
	}
	s := New(m.stores, m.publisher, owner, m.opts...)
	m.sessions[owner] = &managedSession{session: s, lastSeen: time.Now()}
	m.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		// Drop the entry so the next request retries the initial load
		// instead of serving empty lists until the sweep.
		m.mu.Lock()
		if cur, ok := m.sessions[owner]; ok && cur.session == s {
			delete(m.sessions, owner)
		}
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Evict resets and removes the session for owner. Called on sign-out.
func (m *Manager) Evict(owner core.UserID) {
	m.mu.Lock()
	entry, ok := m.sessions[owner]
	if ok {
		delete(m.sessions, owner)
	}
	m.mu.Unlock()
	if ok {
		entry.session.Reset()
	}
}

// Sweep drops sessions idle beyond the TTL and returns how many were
// removed.
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.idleTTL)
	var stale []*managedSession

	m.mu.Lock()
	for owner, entry := range m.sessions {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry)
			delete(m.sessions, owner)
		}
	}
	m.mu.Unlock()

	for _, entry := range stale {
		entry.session.Reset()
	}
	return len(stale)
}

// StartSweeper runs Sweep on an interval until ctx is cancelled.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					slog.Debug("swept idle sessions", "count", n)
				}
			}
		}
	}()
}

// Size returns the number of live sessions.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
