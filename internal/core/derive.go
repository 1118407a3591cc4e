package core

import "time"

// Balance returns the signed sum over transactions: income amounts are
// added, expense amounts subtracted. An empty list yields zero.
func Balance(transactions []Transaction) Money {
	var cents int64
	for _, t := range transactions {
		if t.Kind == Income {
			cents += t.Amount.Cents
		} else {
			cents -= t.Amount.Cents
		}
	}
	return Money{Cents: cents}
}

// Progress returns goal completion as a percentage capped at 100.
// A non-positive target (rejected at validation time anyway) yields 0
// rather than dividing.
func Progress(g Goal) float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Current.Cents) / float64(g.Target.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// IsCompleted is the instantaneous completion predicate, independent of
// the stored completion timestamp. Every mutator keeps the stored
// timestamp consistent with it via DeriveCompletion.
func IsCompleted(g Goal) bool {
	return g.Current.Cents >= g.Target.Cents
}

// DeriveCompletion computes the completion timestamp after a mutation.
// It stamps now when current newly reaches target and no prior stamp
// exists, clears the stamp when current drops back below target, and
// otherwise preserves the prior value. Every goal mutator must go
// through this single rule.
func DeriveCompletion(current, target Money, prior *time.Time, now time.Time) *time.Time {
	if current.Cents >= target.Cents {
		if prior != nil {
			return prior
		}
		ts := now
		return &ts
	}
	return nil
}

// MonthKey returns the YYYY-MM key for a date, the format used by the
// month filters and the summary endpoint.
func MonthKey(d Date) string {
	return d.Format("2006-01")
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amountCents"`
}

// MonthSummary aggregates one month of a user's ledger.
type MonthSummary struct {
	Month      string           `json:"month"` // YYYY-MM
	Income     Money            `json:"incomeCents"`
	Expense    Money            `json:"expenseCents"`
	Balance    Money            `json:"balanceCents"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Summarize aggregates the transactions falling in the given month.
// Category order follows the fixed Categories list; categories with no
// activity are omitted.
func Summarize(month string, transactions []Transaction) MonthSummary {
	s := MonthSummary{Month: month}
	byCat := make(map[string]int64)
	for _, t := range transactions {
		if MonthKey(t.Date) != month {
			continue
		}
		if t.Kind == Income {
			s.Income.Cents += t.Amount.Cents
		} else {
			s.Expense.Cents += t.Amount.Cents
			byCat[t.Category] += t.Amount.Cents
		}
	}
	s.Balance.Cents = s.Income.Cents - s.Expense.Cents
	for _, name := range Categories {
		if cents, ok := byCat[name]; ok {
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
		}
	}
	return s
}
