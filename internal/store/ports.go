// Package store defines the ports for the persistent record store
// consumed by the state containers. Every operation is scoped by owner
// identity: records belong to exactly one user and a mismatched owner
// behaves like a missing record.
package store

import (
	"context"
	"errors"

	"financas/internal/core"
)

// ErrNotFound is returned when no record matches the id+owner pair.
var ErrNotFound = errors.New("record not found")

type (
	TransactionStore interface {
		// ListTransactions returns the owner's transactions ordered by
		// creation time descending.
		ListTransactions(ctx context.Context, owner core.UserID) ([]core.Transaction, error)
		// InsertTransaction assigns id and creation timestamp and
		// returns the stored record.
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// UpdateTransaction replaces the record's mutable fields,
		// matching by id and owner.
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string, owner core.UserID) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, owner core.UserID) ([]core.Goal, error)
		InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, id string, owner core.UserID) error
	}

	ChallengeStore interface {
		ListChallenges(ctx context.Context, owner core.UserID) ([]core.Challenge, error)
		InsertChallenge(ctx context.Context, c core.Challenge) (core.Challenge, error)
		UpdateChallenge(ctx context.Context, c core.Challenge) (core.Challenge, error)
		DeleteChallenge(ctx context.Context, id string, owner core.UserID) error
	}
)

// Stores bundles the three record-kind ports handed to a session.
type Stores struct {
	Transactions TransactionStore
	Goals        GoalStore
	Challenges   ChallengeStore
}
