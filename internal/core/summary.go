package core

import (
	"sort"
	"time"
)

type (
	// MonthSummary is one row of the monthly overview. Balance is the
	// cumulative balance after applying this month's net change.
	MonthSummary struct {
		MonthKey string // YYYY-MM
		Month    string // display label, e.g. "January 2024"
		Incomes  Money
		Expenses Money
		Balance  Money
	}

	// UserTotals pairs income and expense totals for one user label.
	UserTotals struct {
		User    string
		Income  Money
		Expense Money
	}

	// PeriodSummary aggregates transactions inside a date window.
	// InitialBalance is always fully included, regardless of the window.
	PeriodSummary struct {
		TotalIncomes      Money
		TotalExpenses     Money
		CurrentBalance    Money
		IncomeByCategory  map[string]Money
		ExpenseByCategory map[string]Money
		IncomeByUser      map[string]Money
		ExpenseByUser     map[string]Money
		ByUser            []UserTotals
	}
)

// MonthlySummary buckets all transactions by calendar month, sums incomes
// and expenses per bucket and computes the running balance starting from
// the initial balance. Months without transactions are absent from the
// result, not zero-filled.
func MonthlySummary(txs []Transaction, initial Money) []MonthSummary {
	type bucket struct {
		incomes  int64
		expenses int64
	}
	buckets := make(map[string]*bucket)
	for _, t := range txs {
		key := t.Date.MonthKey()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		switch t.Kind {
		case Income:
			b.incomes += t.Amount.Cents
		case Expense:
			b.expenses += t.Amount.Cents
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]MonthSummary, 0, len(keys))
	balance := initial.Cents
	for _, key := range keys {
		b := buckets[key]
		balance += b.incomes - b.expenses
		out = append(out, MonthSummary{
			MonthKey: key,
			Month:    monthLabel(key),
			Incomes:  Money{Cents: b.incomes},
			Expenses: Money{Cents: b.expenses},
			Balance:  Money{Cents: balance},
		})
	}
	return out
}

// SummarizePeriod filters transactions to [start, end] inclusive and
// aggregates totals plus per-category and per-user breakdowns. A zero
// start or end leaves that side of the window open. Transactions with an
// empty category or user are grouped under the empty string, not dropped.
func SummarizePeriod(txs []Transaction, initial Money, start, end Date) PeriodSummary {
	s := PeriodSummary{
		IncomeByCategory:  make(map[string]Money),
		ExpenseByCategory: make(map[string]Money),
		IncomeByUser:      make(map[string]Money),
		ExpenseByUser:     make(map[string]Money),
	}

	for _, t := range txs {
		if !inWindow(t.Date, start, end) {
			continue
		}
		switch t.Kind {
		case Income:
			s.TotalIncomes.Cents += t.Amount.Cents
			addTo(s.IncomeByCategory, t.Category, t.Amount.Cents)
			addTo(s.IncomeByUser, t.User, t.Amount.Cents)
		case Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
			addTo(s.ExpenseByCategory, t.Category, t.Amount.Cents)
			addTo(s.ExpenseByUser, t.User, t.Amount.Cents)
		}
	}

	s.CurrentBalance = Money{Cents: initial.Cents + s.TotalIncomes.Cents - s.TotalExpenses.Cents}
	s.ByUser = mergeUserTotals(s.IncomeByUser, s.ExpenseByUser)
	return s
}

func inWindow(d Date, start, end Date) bool {
	if !start.IsZero() && d.Before(start.Time) {
		return false
	}
	if !end.IsZero() && d.After(end.Time) {
		return false
	}
	return true
}

func addTo(m map[string]Money, key string, cents int64) {
	cur := m[key]
	cur.Cents += cents
	m[key] = cur
}

// mergeUserTotals unions the user names of both maps into rows with a zero
// value where a user appears on one side only. Rows are sorted by name so
// the chart dataset is deterministic.
func mergeUserTotals(incomes, expenses map[string]Money) []UserTotals {
	names := make(map[string]struct{}, len(incomes)+len(expenses))
	for u := range incomes {
		names[u] = struct{}{}
	}
	for u := range expenses {
		names[u] = struct{}{}
	}
	out := make([]UserTotals, 0, len(names))
	for u := range names {
		out = append(out, UserTotals{User: u, Income: incomes[u], Expense: expenses[u]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}
