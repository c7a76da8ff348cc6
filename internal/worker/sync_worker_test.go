package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bolso/internal/amqp"
	"bolso/internal/core"
	"bolso/internal/export"
	"bolso/internal/export/memory"
	"bolso/internal/storage"
)

const testUser = "usuario_teste"

func newTestWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bolso.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	return NewSyncWorker(repo, store, store, testUser), repo, store
}

func TestHandleSyncMessage(t *testing.T) {
	w, repo, store := newTestWorker(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID:          "t-1",
		Description: "Mercado",
		Amount:      core.Money{Cents: 15990},
		Category:    core.CategoryFixed,
		Date:        core.NewDate(2025, 3, 2),
		CreatedAt:   time.Now(),
	}
	if err := repo.UpsertTransaction(ctx, testUser, tx); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("t-1")); err != nil {
		t.Fatalf("handle sync: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 mirrored row, got %d", len(rows))
	}
	row := rows[0]
	if row.TransactionID != "t-1" || row.Date != "2025-03-02" || row.CategoryLabel != "Custos Fixos" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestHandleSyncMessageReplacesStaleRow(t *testing.T) {
	w, repo, store := newTestWorker(t)
	ctx := context.Background()

	tx := core.Transaction{
		ID:          "t-1",
		Description: "Mercado",
		Amount:      core.Money{Cents: 15990},
		Category:    core.CategoryFixed,
		Date:        core.NewDate(2025, 3, 2),
		CreatedAt:   time.Now(),
	}
	if err := repo.UpsertTransaction(ctx, testUser, tx); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("t-1")); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Edit and sync again; the mirror must hold one row with new data.
	tx.Description = "Mercado do mês"
	tx.Amount = core.Money{Cents: 20000}
	if err := repo.UpsertTransaction(ctx, testUser, tx); err != nil {
		t.Fatalf("upsert edit: %v", err)
	}
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("t-1")); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after resync, got %d", len(rows))
	}
	if rows[0].Description != "Mercado do mês" || rows[0].Amount.Cents != 20000 {
		t.Fatalf("stale row survived: %+v", rows[0])
	}
}

func TestHandleSyncMessageSkipsDeletedTransaction(t *testing.T) {
	w, _, store := newTestWorker(t)

	if err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("gone")); err != nil {
		t.Fatalf("sync of missing transaction must not error: %v", err)
	}
	if len(store.Rows()) != 0 {
		t.Fatal("no row should have been mirrored")
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	w, _, store := newTestWorker(t)
	ctx := context.Background()

	seed := export.Row{
		TransactionID: "t-1",
		Date:          "2025-03-02",
		Description:   "Mercado",
		CategoryLabel: "Custos Fixos",
		Amount:        core.Money{Cents: 15990},
	}
	if _, err := store.Append(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	msg := amqp.NewTransactionDeleteMessage("t-1", "2025-03-02", "Mercado", "Custos Fixos", 15990)
	if err := w.HandleDeleteMessage(ctx, msg); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(store.Rows()) != 0 {
		t.Fatalf("row not removed: %+v", store.Rows())
	}
}
