package core

import "testing"

func tx(kind Kind, cents int64, category, user string, d Date) Transaction {
	return Transaction{
		Description: "t",
		Amount:      Money{Cents: cents},
		Category:    category,
		User:        user,
		Date:        d,
		Kind:        kind,
	}
}

func TestMonthlySummaryExample(t *testing.T) {
	// Worked example: initial balance 1000.00, two January movements and
	// one February income.
	txs := []Transaction{
		tx(Income, 50000, "Salary", "Alice", NewDate(2024, 1, 10)),
		tx(Expense, 20000, "Rent", "Alice", NewDate(2024, 1, 15)),
		tx(Income, 30000, "Freelance", "Bob", NewDate(2024, 2, 1)),
	}
	got := MonthlySummary(txs, Money{Cents: 100000})

	if len(got) != 2 {
		t.Fatalf("expected 2 months, got %d", len(got))
	}
	jan := got[0]
	if jan.MonthKey != "2024-01" || jan.Month != "January 2024" {
		t.Fatalf("unexpected first month: %+v", jan)
	}
	if jan.Incomes.Cents != 50000 || jan.Expenses.Cents != 20000 || jan.Balance.Cents != 130000 {
		t.Fatalf("unexpected january totals: %+v", jan)
	}
	feb := got[1]
	if feb.MonthKey != "2024-02" || feb.Incomes.Cents != 30000 || feb.Expenses.Cents != 0 {
		t.Fatalf("unexpected february totals: %+v", feb)
	}
	if feb.Balance.Cents != 160000 {
		t.Fatalf("expected cumulative balance 160000, got %d", feb.Balance.Cents)
	}
}

func TestMonthlySummaryOrderingAndGaps(t *testing.T) {
	// Out-of-order input with a gap month; output must be ascending and
	// the gap must be absent, not zero-filled.
	txs := []Transaction{
		tx(Expense, 100, "a", "u", NewDate(2024, 5, 2)),
		tx(Income, 300, "b", "u", NewDate(2023, 11, 20)),
		tx(Income, 200, "c", "u", NewDate(2024, 1, 1)),
	}
	got := MonthlySummary(txs, Money{})
	keys := []string{"2023-11", "2024-01", "2024-05"}
	if len(got) != len(keys) {
		t.Fatalf("expected %d months, got %d", len(keys), len(got))
	}
	for i, k := range keys {
		if got[i].MonthKey != k {
			t.Fatalf("month %d: expected %s, got %s", i, k, got[i].MonthKey)
		}
	}
	// Balance at the last month is the sum of all net changes.
	if got[2].Balance.Cents != 300+200-100 {
		t.Fatalf("expected balance 400, got %d", got[2].Balance.Cents)
	}
}

func TestMonthlySummaryEmpty(t *testing.T) {
	got := MonthlySummary(nil, Money{Cents: 500})
	if len(got) != 0 {
		t.Fatalf("expected empty summary, got %d rows", len(got))
	}
}

func TestSummarizePeriodExample(t *testing.T) {
	txs := []Transaction{
		tx(Income, 50000, "Salary", "Alice", NewDate(2024, 1, 10)),
		tx(Expense, 20000, "Rent", "Alice", NewDate(2024, 1, 15)),
		tx(Income, 30000, "Freelance", "Bob", NewDate(2024, 2, 1)),
	}
	s := SummarizePeriod(txs, Money{Cents: 100000}, NewDate(2024, 1, 1), NewDate(2024, 1, 31))

	if s.TotalIncomes.Cents != 50000 || s.TotalExpenses.Cents != 20000 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.CurrentBalance.Cents != 130000 {
		t.Fatalf("expected current balance 130000, got %d", s.CurrentBalance.Cents)
	}
	if got := s.IncomeByCategory["Salary"]; got.Cents != 50000 {
		t.Fatalf("expected Salary 50000, got %d", got.Cents)
	}
	if got := s.ExpenseByCategory["Rent"]; got.Cents != 20000 {
		t.Fatalf("expected Rent 20000, got %d", got.Cents)
	}
	if got := s.IncomeByUser["Alice"]; got.Cents != 50000 {
		t.Fatalf("expected Alice 50000, got %d", got.Cents)
	}
	if _, ok := s.IncomeByUser["Bob"]; ok {
		t.Fatalf("Bob is outside the window")
	}
}

func TestSummarizePeriodBalanceIdentity(t *testing.T) {
	txs := []Transaction{
		tx(Income, 111, "a", "u1", NewDate(2024, 1, 1)),
		tx(Expense, 222, "b", "u2", NewDate(2024, 2, 1)),
		tx(Income, 333, "c", "u1", NewDate(2024, 3, 1)),
		tx(Expense, 444, "d", "u3", NewDate(2024, 4, 1)),
	}
	initial := Money{Cents: -5000}
	windows := []struct{ start, end Date }{
		{Date{}, Date{}},
		{NewDate(2024, 1, 15), NewDate(2024, 3, 15)},
		{NewDate(2025, 1, 1), NewDate(2025, 12, 31)}, // empty window
	}
	for i, w := range windows {
		s := SummarizePeriod(txs, initial, w.start, w.end)
		want := initial.Cents + s.TotalIncomes.Cents - s.TotalExpenses.Cents
		if s.CurrentBalance.Cents != want {
			t.Fatalf("window %d: balance identity violated: %d != %d", i, s.CurrentBalance.Cents, want)
		}
	}
}

func TestSummarizePeriodGroupingCompleteness(t *testing.T) {
	txs := []Transaction{
		tx(Income, 100, "a", "u1", NewDate(2024, 1, 1)),
		tx(Income, 200, "b", "u1", NewDate(2024, 1, 2)),
		tx(Income, 300, "a", "u2", NewDate(2024, 1, 3)),
		tx(Expense, 400, "c", "u2", NewDate(2024, 1, 4)),
		tx(Expense, 500, "c", "u3", NewDate(2024, 1, 5)),
	}
	s := SummarizePeriod(txs, Money{}, Date{}, Date{})

	var catIncomes, catExpenses, userIncomes, userExpenses int64
	for _, m := range s.IncomeByCategory {
		catIncomes += m.Cents
	}
	for _, m := range s.ExpenseByCategory {
		catExpenses += m.Cents
	}
	for _, m := range s.IncomeByUser {
		userIncomes += m.Cents
	}
	for _, m := range s.ExpenseByUser {
		userExpenses += m.Cents
	}
	if catIncomes != s.TotalIncomes.Cents || userIncomes != s.TotalIncomes.Cents {
		t.Fatalf("income groupings incomplete: cat=%d user=%d total=%d", catIncomes, userIncomes, s.TotalIncomes.Cents)
	}
	if catExpenses != s.TotalExpenses.Cents || userExpenses != s.TotalExpenses.Cents {
		t.Fatalf("expense groupings incomplete: cat=%d user=%d total=%d", catExpenses, userExpenses, s.TotalExpenses.Cents)
	}
}

func TestSummarizePeriodMergedUserRows(t *testing.T) {
	txs := []Transaction{
		tx(Income, 100, "a", "Alice", NewDate(2024, 1, 1)),
		tx(Expense, 200, "b", "Bob", NewDate(2024, 1, 2)),
		tx(Expense, 300, "b", "Alice", NewDate(2024, 1, 3)),
	}
	s := SummarizePeriod(txs, Money{}, Date{}, Date{})
	if len(s.ByUser) != 2 {
		t.Fatalf("expected 2 user rows, got %d", len(s.ByUser))
	}
	if s.ByUser[0].User != "Alice" || s.ByUser[1].User != "Bob" {
		t.Fatalf("expected sorted user rows, got %+v", s.ByUser)
	}
	if s.ByUser[0].Income.Cents != 100 || s.ByUser[0].Expense.Cents != 300 {
		t.Fatalf("unexpected Alice row: %+v", s.ByUser[0])
	}
	if s.ByUser[1].Income.Cents != 0 || s.ByUser[1].Expense.Cents != 200 {
		t.Fatalf("expected zero income for Bob, got %+v", s.ByUser[1])
	}
}

func TestSummarizePeriodEmptyInputsAndBuckets(t *testing.T) {
	s := SummarizePeriod(nil, Money{Cents: 777}, Date{}, Date{})
	if s.TotalIncomes.Cents != 0 || s.TotalExpenses.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", s)
	}
	if s.CurrentBalance.Cents != 777 {
		t.Fatalf("expected balance to equal initial, got %d", s.CurrentBalance.Cents)
	}
	if len(s.IncomeByCategory) != 0 || len(s.ByUser) != 0 {
		t.Fatalf("expected empty groupings")
	}

	// Empty category and user are buckets of their own.
	s = SummarizePeriod([]Transaction{tx(Income, 100, "", "", NewDate(2024, 1, 1))}, Money{}, Date{}, Date{})
	if got := s.IncomeByCategory[""]; got.Cents != 100 {
		t.Fatalf("expected empty-category bucket, got %+v", s.IncomeByCategory)
	}
	if got := s.IncomeByUser[""]; got.Cents != 100 {
		t.Fatalf("expected empty-user bucket, got %+v", s.IncomeByUser)
	}
}
