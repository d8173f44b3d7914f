// Package memory implements the record store in process memory. It is the
// default backend and the one the tests run against.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"financas/internal/core"
	"financas/internal/store"
)

type Store struct {
	mu      sync.Mutex
	groupID string

	incomes  []core.Transaction
	expenses []core.Transaction
	cats     []core.Category
	goals    []core.Goal
	users    []core.UserLabel
	balance  core.Money

	txSubs  map[core.Kind]map[int]chan []core.Transaction
	balSubs map[int]chan core.Money
	nextSub int
}

var _ store.RecordStore = (*Store)(nil)

func New(groupID string) *Store {
	return &Store{
		groupID: groupID,
		txSubs: map[core.Kind]map[int]chan []core.Transaction{
			core.Income:  {},
			core.Expense: {},
		},
		balSubs: map[int]chan core.Money{},
	}
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.GroupID = s.groupID
	s.appendLocked(t)
	s.notifyTransactionsLocked(t.Kind)
	return t.ID, nil
}

// DeleteTransaction removes the record if present; deleting an absent ID
// is a no-op.
func (s *Store) DeleteTransaction(_ context.Context, kind core.Kind, id string) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := s.bucketLocked(kind)
	for i, t := range *txs {
		if t.ID == id {
			*txs = append((*txs)[:i], (*txs)[i+1:]...)
			s.notifyTransactionsLocked(kind)
			return nil
		}
	}
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.GroupID = s.groupID
	s.cats = append(s.cats, c)
	return c.ID, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.GroupID = s.groupID
	s.goals = append(s.goals, g)
	return g.ID, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.goals {
		if g.ID == id {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.UserLabel) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = uuid.NewString()
	u.GroupID = s.groupID
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) UpsertInitialBalance(_ context.Context, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = amount
	s.notifyBalanceLocked()
	return nil
}

func (s *Store) ListTransactions(_ context.Context, kind core.Kind) ([]core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(kind), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals...), nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.UserLabel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.UserLabel(nil), s.users...), nil
}

func (s *Store) InitialBalance(_ context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

// SubscribeTransactions registers a live listener. The channel carries the
// full collection contents, newest snapshot wins: when the consumer lags,
// the stale snapshot is dropped and replaced.
func (s *Store) SubscribeTransactions(_ context.Context, kind core.Kind) (<-chan []core.Transaction, store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan []core.Transaction, 1)
	id := s.nextSub
	s.nextSub++
	s.txSubs[kind][id] = ch
	ch <- s.snapshotLocked(kind)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.txSubs[kind], id)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Store) SubscribeInitialBalance(_ context.Context) (<-chan core.Money, store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan core.Money, 1)
	id := s.nextSub
	s.nextSub++
	s.balSubs[id] = ch
	ch <- s.balance

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.balSubs, id)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// CommitBatch validates every entry up front and applies the whole batch
// under one lock: either all writes land or none do. Batch entries come
// from the CSV import, where category, description and user may be blank,
// so only kind, amount and date are checked.
func (s *Store) CommitBatch(_ context.Context, b store.Batch) error {
	for _, t := range b.Transactions {
		if err := t.Kind.Validate(); err != nil {
			return err
		}
		if err := t.Amount.Validate(); err != nil {
			return err
		}
		if err := t.Date.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := map[core.Kind]bool{}
	for _, t := range b.Transactions {
		t.ID = uuid.NewString()
		t.GroupID = s.groupID
		s.appendLocked(t)
		changed[t.Kind] = true
	}
	if b.InitialBalance != nil {
		s.balance = *b.InitialBalance
		s.notifyBalanceLocked()
	}
	for kind := range changed {
		s.notifyTransactionsLocked(kind)
	}
	return nil
}

func (s *Store) bucketLocked(kind core.Kind) *[]core.Transaction {
	if kind == core.Income {
		return &s.incomes
	}
	return &s.expenses
}

func (s *Store) appendLocked(t core.Transaction) {
	txs := s.bucketLocked(t.Kind)
	*txs = append(*txs, t)
}

func (s *Store) snapshotLocked(kind core.Kind) []core.Transaction {
	src := *s.bucketLocked(kind)
	out := append([]core.Transaction(nil), src...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out
}

func (s *Store) notifyTransactionsLocked(kind core.Kind) {
	snap := s.snapshotLocked(kind)
	for _, ch := range s.txSubs[kind] {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the consumer always sees the latest.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Store) notifyBalanceLocked() {
	for _, ch := range s.balSubs {
		select {
		case ch <- s.balance:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.balance
		}
	}
}
