// Package sqlite implements the record store on an embedded SQLite
// database. Live subscriptions are fanned out in process after each
// committed write.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"financas/internal/core"
	"financas/internal/store"
)

type Store struct {
	db      *sql.DB
	groupID string
	notes   *notifier
}

var _ store.RecordStore = (*Store)(nil)

func New(dbPath, groupID string) (*Store, error) {
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

	return &Store{db: db, groupID: groupID, notes: newNotifier()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, group_id, kind, description, amount_cents, category, user, tx_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.groupID, string(t.Kind), t.Description, t.Amount.Cents, t.Category, t.User, t.Date.ISO())
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.ISO())

	s.refreshTransactions(ctx, t.Kind)
	return id, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, kind core.Kind, id string) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND group_id = ? AND kind = ?`,
		id, s.groupID, string(kind))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.refreshTransactions(ctx, kind)
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, group_id, name, applies_to) VALUES (?, ?, ?, ?)`,
		id, s.groupID, c.Name, string(c.AppliesTo))
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (s *Store) CreateGoal(ctx context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, group_id, name, target_cents, current_cents, due_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.groupID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, g.DueDate.ISO())
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return id, nil
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND group_id = ?`, id, s.groupID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u core.UserLabel) (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, group_id, name) VALUES (?, ?, ?)`,
		id, s.groupID, u.Name)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *Store) UpsertInitialBalance(ctx context.Context, amount core.Money) error {
	if err := s.upsertBalanceExec(ctx, s.db, amount); err != nil {
		return err
	}
	s.notes.publishBalance(amount)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsertBalanceExec(ctx context.Context, db execer, amount core.Money) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (group_id, initial_balance_cents) VALUES (?, ?)
		 ON CONFLICT (group_id) DO UPDATE SET initial_balance_cents = excluded.initial_balance_cents`,
		s.groupID, amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert initial balance: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, kind core.Kind) ([]core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, kind, description, amount_cents, category, user, tx_date
		 FROM transactions
		 WHERE group_id = ? AND kind = ?
		 ORDER BY tx_date DESC, created_at DESC`,
		s.groupID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var kindStr, dateStr string
		if err := rows.Scan(&t.ID, &t.GroupID, &kindStr, &t.Description, &t.Amount.Cents, &t.Category, &t.User, &dateStr); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kindStr)
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
		}
		t.Date = core.Date{Time: d}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, applies_to FROM categories WHERE group_id = ? ORDER BY name`,
		s.groupID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var applies string
		if err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &applies); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.AppliesTo = core.Kind(applies)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, target_cents, current_cents, due_date
		 FROM goals WHERE group_id = ? ORDER BY due_date`,
		s.groupID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var dueStr string
		if err := rows.Scan(&g.ID, &g.GroupID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &dueStr); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		d, err := time.Parse("2006-01-02", dueStr)
		if err != nil {
			return nil, fmt.Errorf("parse stored due date %q: %w", dueStr, err)
		}
		g.DueDate = core.Date{Time: d}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListUsers(ctx context.Context) ([]core.UserLabel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name FROM users WHERE group_id = ? ORDER BY name`,
		s.groupID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.UserLabel
	for rows.Next() {
		var u core.UserLabel
		if err := rows.Scan(&u.ID, &u.GroupID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) InitialBalance(ctx context.Context) (core.Money, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT initial_balance_cents FROM settings WHERE group_id = ?`, s.groupID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("read initial balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *Store) SubscribeTransactions(ctx context.Context, kind core.Kind) (<-chan []core.Transaction, store.CancelFunc) {
	snap, err := s.ListTransactions(ctx, kind)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read initial snapshot", "kind", kind, "error", err)
	}
	return s.notes.subscribeTransactions(kind, snap)
}

func (s *Store) SubscribeInitialBalance(ctx context.Context) (<-chan core.Money, store.CancelFunc) {
	bal, err := s.InitialBalance(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read initial balance", "error", err)
	}
	return s.notes.subscribeBalance(bal)
}

// CommitBatch applies the whole batch inside one SQL transaction. Entries
// come from the CSV import, where category, description and user may be
// blank, so only kind, amount and date are checked.
func (s *Store) CommitBatch(ctx context.Context, b store.Batch) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	changed := map[core.Kind]bool{}
	for _, t := range b.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, group_id, kind, description, amount_cents, category, user, tx_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), s.groupID, string(t.Kind), t.Description, t.Amount.Cents, t.Category, t.User, t.Date.ISO())
		if err != nil {
			return fmt.Errorf("insert batch transaction: %w", err)
		}
		changed[t.Kind] = true
	}
	if b.InitialBalance != nil {
		if err := s.upsertBalanceExec(ctx, tx, *b.InitialBalance); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Batch committed", "size", b.Size())

	for kind := range changed {
		s.refreshTransactions(ctx, kind)
	}
	if b.InitialBalance != nil {
		s.notes.publishBalance(*b.InitialBalance)
	}
	return nil
}

// refreshTransactions re-reads the collection and pushes the snapshot to
// every listener.
func (s *Store) refreshTransactions(ctx context.Context, kind core.Kind) {
	snap, err := s.ListTransactions(ctx, kind)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to refresh snapshot", "kind", kind, "error", err)
		return
	}
	s.notes.publishTransactions(kind, snap)
}
