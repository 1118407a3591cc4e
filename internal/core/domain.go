package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	StatusPending   ChallengeStatus = "pending"
	StatusAccepted  ChallengeStatus = "accepted"
	StatusCompleted ChallengeStatus = "completed"
)

type (
	// UserID identifies the authenticated owner of a record. All store
	// reads and writes are scoped by it.
	UserID string

	TransactionKind string

	ChallengeStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string
		Owner       UserID
		Kind        TransactionKind
		Description string
		Amount      Money
		Date        Date
		Category    string
		CreatedAt   time.Time
	}

	Goal struct {
		ID          string
		Owner       UserID
		Name        string
		Target      Money
		Current     Money
		Deadline    Date // zero value means no deadline
		CreatedAt   time.Time
		CompletedAt *time.Time
	}

	Challenge struct {
		ID          string
		Owner       UserID
		Description string
		Status      ChallengeStatus
		Week        string // YYYY-WW
		CreatedAt   time.Time
		CompletedAt *time.Time
	}
)

// Categories is the fixed set of transaction categories exposed for UI
// population. Not user-extensible.
var Categories = []string{
	"Alimentação",
	"Transporte",
	"Lazer",
	"Saúde",
	"Educação",
	"Moradia",
	"Compras",
	"Investimentos",
	"Outros",
	"Salário",
	"Freelance",
	"Vendas",
	"Dividendos",
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidStatus    = errors.New("invalid challenge status")
	ErrInvalidWeek      = errors.New("invalid week key")
	ErrInvalidTarget    = errors.New("target amount must be positive")
	ErrNegativeCurrent  = errors.New("current amount cannot be negative")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingOwner     = errors.New("missing owner")
)

func (k TransactionKind) IsValid() bool {
	return k == Income || k == Expense
}

func (s ChallengeStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsKnownCategory reports whether name belongs to the fixed category set.
func IsKnownCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// NewDate creates a Date from year, month, day (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// IsEmpty returns true for the zero date, used for optional dates such
// as goal deadlines.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(string(t.Owner)) == "" {
		return ErrMissingOwner
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !IsKnownCategory(t.Category) {
		return ErrInvalidCategory
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(string(g.Owner)) == "" {
		return ErrMissingOwner
	}
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	// Target of zero would make progress undefined, reject it up front.
	if g.Target.Cents <= 0 {
		return ErrInvalidTarget
	}
	if g.Current.Cents < 0 {
		return ErrNegativeCurrent
	}
	return nil
}

func (c Challenge) Validate() error {
	if strings.TrimSpace(string(c.Owner)) == "" {
		return ErrMissingOwner
	}
	if len(strings.TrimSpace(c.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !c.Status.IsValid() {
		return ErrInvalidStatus
	}
	if !IsWeekKey(c.Week) {
		return ErrInvalidWeek
	}
	return nil
}
