package csvio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/store"
	"financas/internal/store/memory"
)

func tx(kind core.Kind, cents int64, desc, category, user string, d core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		User:        user,
		Date:        d,
		Kind:        kind,
	}
}

func TestExportFormat(t *testing.T) {
	ds := Dataset{
		InitialBalance: core.Money{Cents: 123456},
		Incomes: []core.Transaction{
			tx(core.Income, 50000, "Salary, net", "Work", "Alice", core.NewDate(2024, 1, 10)),
		},
		Expenses: []core.Transaction{
			tx(core.Expense, 2050, `Coffee "to go"`, "Food", "Bob", core.NewDate(2024, 1, 11)),
		},
	}
	out := string(Export(ds, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	if !strings.HasPrefix(out, "\uFEFF") {
		t.Fatalf("expected BOM prefix")
	}
	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(out, "\uFEFF"), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != `"Type","Date","Description","Amount","Category","User"` {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != `"InitialBalance","2024-03-01","","1234.56","",""` {
		t.Fatalf("unexpected balance row: %s", lines[1])
	}
	if lines[2] != `"Income","2024-01-10","Salary, net","500.00","Work","Alice"` {
		t.Fatalf("unexpected income row: %s", lines[2])
	}
	if lines[3] != `"Expense","2024-01-11","Coffee ""to go""","20.50","Food","Bob"` {
		t.Fatalf("unexpected expense row: %s", lines[3])
	}
}

func TestParseRoundTrip(t *testing.T) {
	ds := Dataset{
		InitialBalance: core.Money{Cents: -7500},
		Incomes: []core.Transaction{
			tx(core.Income, 50000, "Salary", "Work", "Alice", core.NewDate(2024, 1, 10)),
			tx(core.Income, 30000, "Freelance", "Work", "Bob", core.NewDate(2024, 2, 1)),
		},
		Expenses: []core.Transaction{
			tx(core.Expense, 20000, "Rent", "Home", "Alice", core.NewDate(2024, 1, 15)),
		},
	}
	batch, res, err := Parse(Export(ds, time.Now()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Accepted != 4 || res.Skipped != 0 {
		t.Fatalf("expected 4 accepted, 0 skipped, got %+v", res)
	}
	if batch.InitialBalance == nil || batch.InitialBalance.Cents != -7500 {
		t.Fatalf("unexpected balance: %+v", batch.InitialBalance)
	}
	if len(batch.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(batch.Transactions))
	}
	// Every exported row survives with its fields intact.
	want := map[string]int64{"Salary": 50000, "Freelance": 30000, "Rent": 20000}
	for _, got := range batch.Transactions {
		cents, ok := want[got.Description]
		if !ok {
			t.Fatalf("unexpected transaction %+v", got)
		}
		if got.Amount.Cents != cents {
			t.Fatalf("%s: expected %d cents, got %d", got.Description, cents, got.Amount.Cents)
		}
		delete(want, got.Description)
	}
	if len(want) != 0 {
		t.Fatalf("missing transactions: %v", want)
	}
}

func TestParseSkipsBadRows(t *testing.T) {
	in := strings.Join([]string{
		`"Type","Date","Description","Amount","Category","User"`,
		`"Income","2024-01-10","Salary","500.00","Work","Alice"`,
		`"Income","2024-01-11","Broken","abc","Work","Alice"`,
		`"Income","2024-01-12","Short","100.00"`,
		`"Income","not-a-date","BadDate","100.00","Work","Alice"`,
		`"Expense","2024-01-13","Rent","200,50","Home","Bob"`,
	}, "\n")

	batch, res, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Accepted != 2 || res.Skipped != 3 {
		t.Fatalf("expected 2 accepted / 3 skipped, got %+v", res)
	}
	if len(batch.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(batch.Transactions))
	}
	// Comma decimal separators are tolerated.
	if batch.Transactions[1].Amount.Cents != 20050 {
		t.Fatalf("expected 20050 cents, got %d", batch.Transactions[1].Amount.Cents)
	}
}

func TestParseDefaultsUnknownUser(t *testing.T) {
	in := strings.Join([]string{
		`"Type","Date","Description","Amount","Category","User"`,
		`"Income","2024-01-10","Salary","500.00","Work",""`,
	}, "\n")
	batch, _, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if batch.Transactions[0].User != core.UnknownUser {
		t.Fatalf("expected default user, got %q", batch.Transactions[0].User)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n\n", `"Type","Date","Description","Amount","Category","User"`} {
		if _, _, err := Parse([]byte(in)); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("input %q: expected ErrEmptyInput, got %v", in, err)
		}
	}
}

func TestImportCommitsAtomically(t *testing.T) {
	s := memory.New("g")
	ctx := context.Background()

	in := strings.Join([]string{
		`"Type","Date","Description","Amount","Category","User"`,
		`"InitialBalance","2024-03-01","","1000.00","",""`,
		`"Income","2024-01-10","Salary","500.00","Work","Alice"`,
		`"Expense","2024-01-15","Rent","200.00","Home","Alice"`,
	}, "\n")

	res, err := Import(ctx, []byte(in), s)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Accepted != 3 {
		t.Fatalf("expected 3 accepted, got %+v", res)
	}
	incomes, _ := s.ListTransactions(ctx, core.Income)
	expenses, _ := s.ListTransactions(ctx, core.Expense)
	bal, _ := s.InitialBalance(ctx)
	if len(incomes) != 1 || len(expenses) != 1 || bal.Cents != 100000 {
		t.Fatalf("import not applied: %d incomes, %d expenses, balance %d", len(incomes), len(expenses), bal.Cents)
	}
}

func TestImportFailedCommitReportsError(t *testing.T) {
	in := strings.Join([]string{
		`"Type","Date","Description","Amount","Category","User"`,
		`"Income","2024-01-10","Salary","500.00","Work","Alice"`,
	}, "\n")
	_, err := Import(context.Background(), []byte(in), failingCommitter{})
	if err == nil {
		t.Fatalf("expected commit error")
	}
}

type failingCommitter struct{}

func (failingCommitter) CommitBatch(context.Context, store.Batch) error {
	return errors.New("backend unavailable")
}
