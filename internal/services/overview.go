// Package services keeps a live, precomputed view of the workspace built
// from store subscriptions.
package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"financas/internal/core"
	"financas/internal/store"
)

// Overview is the current state of the workspace dashboard: both
// collections, the initial balance and the monthly aggregation derived
// from them.
type Overview struct {
	Incomes        []core.Transaction
	Expenses       []core.Transaction
	InitialBalance core.Money
	Months         []core.MonthSummary
}

// OverviewService subscribes to incomes, expenses and the initial balance
// and recomputes the overview on every snapshot. Readers always get the
// latest consistent copy.
type OverviewService struct {
	store store.RecordStore

	mu      sync.RWMutex
	current Overview

	readyOnce sync.Once
	ready     chan struct{}
	seen      [3]bool
}

func NewOverviewService(st store.RecordStore) *OverviewService {
	return &OverviewService{
		store: st,
		ready: make(chan struct{}),
	}
}

// Ready is closed once all three subscriptions have delivered their first
// snapshot.
func (s *OverviewService) Ready() <-chan struct{} {
	return s.ready
}

// Current returns the latest overview.
func (s *OverviewService) Current() Overview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Summarize computes the period summary over the latest state.
func (s *OverviewService) Summarize(start, end core.Date) core.PeriodSummary {
	s.mu.RLock()
	txs := make([]core.Transaction, 0, len(s.current.Incomes)+len(s.current.Expenses))
	txs = append(txs, s.current.Incomes...)
	txs = append(txs, s.current.Expenses...)
	initial := s.current.InitialBalance
	s.mu.RUnlock()
	return core.SummarizePeriod(txs, initial, start, end)
}

// Run consumes the three subscriptions until the context ends.
func (s *OverviewService) Run(ctx context.Context) error {
	incomeCh, cancelIncomes := s.store.SubscribeTransactions(ctx, core.Income)
	defer cancelIncomes()
	expenseCh, cancelExpenses := s.store.SubscribeTransactions(ctx, core.Expense)
	defer cancelExpenses()
	balanceCh, cancelBalance := s.store.SubscribeInitialBalance(ctx)
	defer cancelBalance()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap := <-incomeCh:
				s.apply(0, func(o *Overview) { o.Incomes = snap })
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap := <-expenseCh:
				s.apply(1, func(o *Overview) { o.Expenses = snap })
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case bal := <-balanceCh:
				s.apply(2, func(o *Overview) { o.InitialBalance = bal })
			}
		}
	})

	return g.Wait()
}

func (s *OverviewService) apply(source int, update func(*Overview)) {
	s.mu.Lock()
	update(&s.current)
	txs := make([]core.Transaction, 0, len(s.current.Incomes)+len(s.current.Expenses))
	txs = append(txs, s.current.Incomes...)
	txs = append(txs, s.current.Expenses...)
	s.current.Months = core.MonthlySummary(txs, s.current.InitialBalance)
	s.seen[source] = true
	allSeen := s.seen[0] && s.seen[1] && s.seen[2]
	s.mu.Unlock()

	if allSeen {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}
