// Package sqlite implements the store ports on an embedded SQLite
// database. Record ids are assigned here (uuid) so callers never mint
// their own, and transactions carry sync bookkeeping consumed by the
// sheets mirror worker.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/store"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339Nano
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.TransactionStore = (*Repository)(nil)
	_ store.GoalStore        = (*Repository)(nil)
	_ store.ChallengeStore   = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Stores returns the repository wired as the three record-kind ports.
func (r *Repository) Stores() store.Stores {
	return store.Stores{Transactions: r, Goals: r, Challenges: r}
}

// --- transactions ---

const transactionColumns = "id, owner, kind, description, amount_cents, date, category, created_at"

func (r *Repository) ListTransactions(ctx context.Context, owner core.UserID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE owner = ? ORDER BY created_at DESC",
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions (id, owner, kind, description, amount_cents, date, category, created_at, sync_pending) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)",
		t.ID, string(t.Owner), string(t.Kind), t.Description, t.Amount.Cents,
		t.Date.Format(dateFormat), t.Category, t.CreatedAt.Format(timeFormat))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "transaction saved",
		log.FieldRecordID, t.ID, log.FieldOwner, t.Owner, log.FieldRecordKind, t.Kind, log.FieldAmount, t.Amount.Cents)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET kind = ?, description = ?, amount_cents = ?, date = ?, category = ?, sync_pending = 1 WHERE id = ? AND owner = ?",
		string(t.Kind), t.Description, t.Amount.Cents, t.Date.Format(dateFormat),
		t.Category, t.ID, string(t.Owner))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Transaction{}, err
	}
	return r.getTransactionByOwner(ctx, t.ID, t.Owner)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string, owner core.UserID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND owner = ?", id, string(owner))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) getTransactionByOwner(ctx context.Context, id string, owner core.UserID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND owner = ?", id, string(owner))
	return scanTransaction(row)
}

// GetTransaction fetches one transaction regardless of owner; used by
// the mirror worker which operates across users.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                  core.Transaction
		owner, kind        string
		dateStr, createdAt string
	)
	err := row.Scan(&t.ID, &owner, &kind, &t.Description, &t.Amount.Cents, &dateStr, &t.Category, &createdAt)
	if err == sql.ErrNoRows {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Owner = core.UserID(owner)
	t.Kind = core.TransactionKind(kind)
	if t.Date, err = parseDate(dateStr); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// --- goals ---

const goalColumns = "id, owner, name, target_cents, current_cents, deadline, created_at, completed_at"

func (r *Repository) ListGoals(ctx context.Context, owner core.UserID) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE owner = ? ORDER BY created_at DESC",
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) InsertGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO goals (id, owner, name, target_cents, current_cents, deadline, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		g.ID, string(g.Owner), g.Name, g.Target.Cents, g.Current.Cents,
		nullDate(g.Deadline), g.CreatedAt.Format(timeFormat), nullTime(g.CompletedAt))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "goal saved", log.FieldRecordID, g.ID, log.FieldOwner, g.Owner, "target_cents", g.Target.Cents)
	return g, nil
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE goals SET name = ?, target_cents = ?, current_cents = ?, deadline = ?, completed_at = ? WHERE id = ? AND owner = ?",
		g.Name, g.Target.Cents, g.Current.Cents, nullDate(g.Deadline),
		nullTime(g.CompletedAt), g.ID, string(g.Owner))
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Goal{}, err
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id = ? AND owner = ?", g.ID, string(g.Owner))
	return scanGoal(row)
}

func (r *Repository) DeleteGoal(ctx context.Context, id string, owner core.UserID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM goals WHERE id = ? AND owner = ?", id, string(owner))
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g                    core.Goal
		owner, createdAt     string
		deadline, completed  sql.NullString
	)
	err := row.Scan(&g.ID, &owner, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline, &createdAt, &completed)
	if err == sql.ErrNoRows {
		return core.Goal{}, store.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	g.Owner = core.UserID(owner)
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Goal{}, err
	}
	if deadline.Valid {
		if g.Deadline, err = parseDate(deadline.String); err != nil {
			return core.Goal{}, err
		}
	}
	if g.CompletedAt, err = parseNullTime(completed); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

// --- challenges ---

const challengeColumns = "id, owner, description, status, week, created_at, completed_at"

func (r *Repository) ListChallenges(ctx context.Context, owner core.UserID) ([]core.Challenge, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE owner = ? ORDER BY created_at DESC",
		string(owner))
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	var out []core.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertChallenge(ctx context.Context, c core.Challenge) (core.Challenge, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO challenges (id, owner, description, status, week, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, string(c.Owner), c.Description, string(c.Status), c.Week,
		c.CreatedAt.Format(timeFormat), nullTime(c.CompletedAt))
	if err != nil {
		return core.Challenge{}, fmt.Errorf("insert challenge: %w", err)
	}

	slog.InfoContext(ctx, "challenge saved", log.FieldRecordID, c.ID, log.FieldOwner, c.Owner, log.FieldWeek, c.Week)
	return c, nil
}

func (r *Repository) UpdateChallenge(ctx context.Context, c core.Challenge) (core.Challenge, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE challenges SET description = ?, status = ?, week = ?, completed_at = ? WHERE id = ? AND owner = ?",
		c.Description, string(c.Status), c.Week, nullTime(c.CompletedAt), c.ID, string(c.Owner))
	if err != nil {
		return core.Challenge{}, fmt.Errorf("update challenge: %w", err)
	}
	if err := requireRow(res); err != nil {
		return core.Challenge{}, err
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE id = ? AND owner = ?", c.ID, string(c.Owner))
	return scanChallenge(row)
}

func (r *Repository) DeleteChallenge(ctx context.Context, id string, owner core.UserID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM challenges WHERE id = ? AND owner = ?", id, string(owner))
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return requireRow(res)
}

func scanChallenge(row rowScanner) (core.Challenge, error) {
	var (
		c                 core.Challenge
		owner, status     string
		createdAt         string
		completed         sql.NullString
	)
	err := row.Scan(&c.ID, &owner, &c.Description, &status, &c.Week, &createdAt, &completed)
	if err == sql.ErrNoRows {
		return core.Challenge{}, store.ErrNotFound
	}
	if err != nil {
		return core.Challenge{}, fmt.Errorf("scan challenge: %w", err)
	}
	c.Owner = core.UserID(owner)
	c.Status = core.ChallengeStatus(status)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Challenge{}, err
	}
	if c.CompletedAt, err = parseNullTime(completed); err != nil {
		return core.Challenge{}, err
	}
	return c, nil
}

// --- mirror bookkeeping ---

// PendingTransaction is a transaction id awaiting mirror sync.
type PendingTransaction struct {
	ID        string
	CreatedAt time.Time
}

// ListPendingSync returns transactions that still need to be mirrored,
// oldest first. Backup path for lost broker messages.
func (r *Repository) ListPendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, created_at FROM transactions WHERE sync_pending = 1 AND sync_error = 0 ORDER BY created_at ASC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var (
			p         PendingTransaction
			createdAt string
		)
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced clears the pending flag after a successful mirror append.
func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_pending = 0, sync_error = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a transaction so the periodic sweep stops
// retrying it until an operator intervenes.
func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_error = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	return nil
}

// --- helpers ---

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.Format(dateFormat)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeFormat)
}
