// Package worker keeps an on-disk CSV snapshot of the workspace fresh.
// Change events trigger a debounced re-export; a periodic pass covers
// missed messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/csvio"
	"financas/internal/sheets"
	"financas/internal/store"
)

type BackupWorker struct {
	store    store.Reader
	mirror   sheets.Mirror
	dir      string
	debounce time.Duration
	trigger  chan struct{}
	now      func() time.Time
}

// NewBackupWorker creates a worker that exports into dir. The mirror is
// optional; when set, created transactions are also appended to it.
func NewBackupWorker(st store.Reader, mirror sheets.Mirror, dir string, debounce time.Duration) *BackupWorker {
	return &BackupWorker{
		store:    st,
		mirror:   mirror,
		dir:      dir,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// HandleChange processes one change event from the queue. Every event
// schedules a snapshot export; transaction creations are additionally
// mirrored when a mirror is configured.
func (w *BackupWorker) HandleChange(ctx context.Context, ev *amqp.ChangeEvent) error {
	if w.mirror != nil && ev.Entity == amqp.EntityTransaction && ev.Action == amqp.ActionCreated {
		if err := w.mirrorTransaction(ctx, core.Kind(ev.Kind), ev.RecordID); err != nil {
			return fmt.Errorf("mirror transaction: %w", err)
		}
	}

	select {
	case w.trigger <- struct{}{}:
	default:
		// An export is already scheduled.
	}
	return nil
}

func (w *BackupWorker) mirrorTransaction(ctx context.Context, kind core.Kind, id string) error {
	txs, err := w.store.ListTransactions(ctx, kind)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range txs {
		if t.ID == id {
			return w.mirror.AppendTransaction(ctx, t)
		}
	}
	slog.WarnContext(ctx, "Transaction from change event no longer present",
		"kind", kind,
		"id", id)
	return nil
}

// Run exports once on startup, then loops until the context ends. Change
// triggers are debounced so an import burst produces a single export.
func (w *BackupWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.Export(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		case <-w.trigger:
			timer := time.NewTimer(w.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			// Drain any trigger that arrived while waiting.
			select {
			case <-w.trigger:
			default:
			}
			if err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Triggered export failed", "error", err)
			}
		}
	}
}

// Export writes the full dataset snapshot. The file is written to a temp
// name and renamed so readers never see a partial file.
func (w *BackupWorker) Export(ctx context.Context) error {
	incomes, err := w.store.ListTransactions(ctx, core.Income)
	if err != nil {
		return fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := w.store.ListTransactions(ctx, core.Expense)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	balance, err := w.store.InitialBalance(ctx)
	if err != nil {
		return fmt.Errorf("read initial balance: %w", err)
	}

	data := csvio.Export(csvio.Dataset{
		InitialBalance: balance,
		Incomes:        incomes,
		Expenses:       expenses,
	}, w.now())

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	target := filepath.Join(w.dir, csvio.FileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot exported",
		"path", target,
		"incomes", len(incomes),
		"expenses", len(expenses))
	return nil
}
