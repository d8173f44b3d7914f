// Package store defines the ports every record store backend implements.
//
// The application never assumes a concrete store; it needs collection
// writes, live snapshot subscriptions and an atomic batch commit, scoped
// under the one configured workspace group.
package store

import (
	"context"
	"errors"

	"financas/internal/core"
)

// CancelFunc releases a live subscription and its underlying listener.
// Safe to call more than once.
type CancelFunc func()

// Batch is the unit of atomic multi-write used by the CSV import: either
// every entry is persisted or none are.
type Batch struct {
	InitialBalance *core.Money
	Transactions   []core.Transaction
}

// Size returns the number of writes the batch carries.
func (b Batch) Size() int {
	n := len(b.Transactions)
	if b.InitialBalance != nil {
		n++
	}
	return n
}

var ErrNotFound = errors.New("record not found")

type (
	// Writer covers single-record mutations. Create assigns and returns
	// the new record ID. Deletes of absent IDs are no-ops.
	Writer interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
		DeleteTransaction(ctx context.Context, kind core.Kind, id string) error
		CreateCategory(ctx context.Context, c core.Category) (string, error)
		CreateGoal(ctx context.Context, g core.Goal) (string, error)
		DeleteGoal(ctx context.Context, id string) error
		CreateUser(ctx context.Context, u core.UserLabel) (string, error)
		UpsertInitialBalance(ctx context.Context, amount core.Money) error
	}

	// Reader returns full current collection contents, ordered by date
	// descending where the records are dated.
	Reader interface {
		ListTransactions(ctx context.Context, kind core.Kind) ([]core.Transaction, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		ListGoals(ctx context.Context) ([]core.Goal, error)
		ListUsers(ctx context.Context) ([]core.UserLabel, error)
		InitialBalance(ctx context.Context) (core.Money, error)
	}

	// Subscriber delivers the full collection contents on every change.
	// Each subscription emits one snapshot immediately and stays open
	// until cancelled.
	Subscriber interface {
		SubscribeTransactions(ctx context.Context, kind core.Kind) (<-chan []core.Transaction, CancelFunc)
		SubscribeInitialBalance(ctx context.Context) (<-chan core.Money, CancelFunc)
	}

	// BatchCommitter applies a batch atomically.
	BatchCommitter interface {
		CommitBatch(ctx context.Context, b Batch) error
	}

	// RecordStore is the full contract a backend provides.
	RecordStore interface {
		Writer
		Reader
		Subscriber
		BatchCommitter
	}
)
