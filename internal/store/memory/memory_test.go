package memory

import (
	"context"
	"testing"

	"financas/internal/core"
	"financas/internal/store"
)

func tx(kind core.Kind, cents int64, d core.Date) core.Transaction {
	return core.Transaction{
		Description: "t",
		Amount:      core.Money{Cents: cents},
		Category:    "c",
		User:        "u",
		Date:        d,
		Kind:        kind,
	}
}

func TestCreateAndListOrdering(t *testing.T) {
	s := New("grupo")
	ctx := context.Background()

	if _, err := s.CreateTransaction(ctx, tx(core.Income, 100, core.NewDate(2024, 1, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, tx(core.Income, 200, core.NewDate(2024, 3, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, tx(core.Income, 300, core.NewDate(2024, 2, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListTransactions(ctx, core.Income)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(got))
	}
	// Date descending, like the live query ordering.
	if got[0].Amount.Cents != 200 || got[1].Amount.Cents != 300 || got[2].Amount.Cents != 100 {
		t.Fatalf("unexpected order: %+v", got)
	}
	for _, g := range got {
		if g.ID == "" || g.GroupID != "grupo" {
			t.Fatalf("expected assigned id and group, got %+v", g)
		}
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New("g")
	bad := tx(core.Income, 0, core.NewDate(2024, 1, 1))
	if _, err := s.CreateTransaction(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDeleteIsNoOpWhenAbsent(t *testing.T) {
	s := New("g")
	ctx := context.Background()
	id, err := s.CreateTransaction(ctx, tx(core.Expense, 100, core.NewDate(2024, 1, 1)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteTransaction(ctx, core.Expense, "missing"); err != nil {
		t.Fatalf("absent delete should be a no-op, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, core.Expense, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.ListTransactions(ctx, core.Expense)
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	s := New("g")
	ctx := context.Background()

	ch, cancel := s.SubscribeTransactions(ctx, core.Income)
	defer cancel()

	first := <-ch
	if len(first) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(first))
	}

	if _, err := s.CreateTransaction(ctx, tx(core.Income, 100, core.NewDate(2024, 1, 1))); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := <-ch
	if len(second) != 1 || second[0].Amount.Cents != 100 {
		t.Fatalf("unexpected snapshot after create: %+v", second)
	}

	// A lagging consumer sees the newest snapshot, not every intermediate one.
	if _, err := s.CreateTransaction(ctx, tx(core.Income, 200, core.NewDate(2024, 1, 2))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, tx(core.Income, 300, core.NewDate(2024, 1, 3))); err != nil {
		t.Fatalf("create: %v", err)
	}
	latest := <-ch
	if len(latest) != 3 {
		t.Fatalf("expected latest snapshot with 3 records, got %d", len(latest))
	}
}

func TestSubscribeInitialBalance(t *testing.T) {
	s := New("g")
	ctx := context.Background()

	ch, cancel := s.SubscribeInitialBalance(ctx)
	defer cancel()

	if got := <-ch; got.Cents != 0 {
		t.Fatalf("expected zero initial balance, got %d", got.Cents)
	}
	if err := s.UpsertInitialBalance(ctx, core.Money{Cents: -5000}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := <-ch; got.Cents != -5000 {
		t.Fatalf("expected upserted balance, got %d", got.Cents)
	}
}

func TestCancelReleasesSubscription(t *testing.T) {
	s := New("g")
	ch, cancel := s.SubscribeTransactions(context.Background(), core.Expense)
	<-ch
	cancel()
	cancel() // safe to call twice

	s.mu.Lock()
	n := len(s.txSubs[core.Expense])
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected subscription to be released, %d left", n)
	}
}

func TestCommitBatchAtomic(t *testing.T) {
	s := New("g")
	ctx := context.Background()

	bal := core.Money{Cents: 100000}
	good := store.Batch{
		InitialBalance: &bal,
		Transactions: []core.Transaction{
			tx(core.Income, 100, core.NewDate(2024, 1, 1)),
			tx(core.Expense, 200, core.NewDate(2024, 1, 2)),
		},
	}
	if err := s.CommitBatch(ctx, good); err != nil {
		t.Fatalf("commit: %v", err)
	}
	incomes, _ := s.ListTransactions(ctx, core.Income)
	expenses, _ := s.ListTransactions(ctx, core.Expense)
	balance, _ := s.InitialBalance(ctx)
	if len(incomes) != 1 || len(expenses) != 1 || balance.Cents != 100000 {
		t.Fatalf("batch not fully applied: %d incomes, %d expenses, balance %d", len(incomes), len(expenses), balance.Cents)
	}

	// One invalid entry fails the whole batch; nothing is applied.
	bad := store.Batch{
		Transactions: []core.Transaction{
			tx(core.Income, 300, core.NewDate(2024, 2, 1)),
			tx(core.Income, 0, core.NewDate(2024, 2, 2)),
		},
	}
	if err := s.CommitBatch(ctx, bad); err == nil {
		t.Fatalf("expected batch commit error")
	}
	incomes, _ = s.ListTransactions(ctx, core.Income)
	if len(incomes) != 1 {
		t.Fatalf("failed batch must not persist rows, got %d incomes", len(incomes))
	}
}
