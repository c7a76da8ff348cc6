package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bolso/internal/core"
)

const testUser = "usuario_teste"

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bolso.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTransaction(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "Mercado",
		Amount:      core.Money{Cents: 15990},
		Category:    core.CategoryFixed,
		Date:        core.NewDate(2025, 3, 2),
		CreatedAt:   time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolso.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := repo.UpsertTransaction(ctx, testUser, sampleTransaction("t-1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A second open hits the no-change migration path and must leave
	// the connection usable.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	list, err := repo.ListTransactions(ctx, testUser)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(list) != 1 || list[0].ID != "t-1" {
		t.Fatalf("unexpected list after reopen: %+v", list)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := sampleTransaction("t-1")
	if err := repo.UpsertTransaction(ctx, testUser, want); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetTransaction(ctx, testUser, "t-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertSameTransaction(t, got, want)

	list, err := repo.ListTransactions(ctx, testUser)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	assertSameTransaction(t, list[0], want)
}

func assertSameTransaction(t *testing.T, got, want core.Transaction) {
	t.Helper()
	if got.ID != want.ID || got.Description != want.Description ||
		got.Amount != want.Amount || got.Category != want.Category {
		t.Fatalf("transaction mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	if got.Date.ISO() != want.Date.ISO() {
		t.Fatalf("date = %s, want %s", got.Date.ISO(), want.Date.ISO())
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func TestUpsertOverwritesKeepingCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	original := sampleTransaction("t-1")
	if err := repo.UpsertTransaction(ctx, testUser, original); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	edited := original
	edited.Description = "Mercado do mês"
	edited.Amount = core.Money{Cents: 20000}
	edited.Category = core.CategoryComfort
	// An edit must not move created_at even if the caller passes a
	// different timestamp by mistake.
	edited.CreatedAt = original.CreatedAt.Add(time.Hour)
	if err := repo.UpsertTransaction(ctx, testUser, edited); err != nil {
		t.Fatalf("upsert edit: %v", err)
	}

	got, err := repo.GetTransaction(ctx, testUser, "t-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "Mercado do mês" || got.Amount.Cents != 20000 || got.Category != core.CategoryComfort {
		t.Fatalf("edit not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at moved on edit: %v, want %v", got.CreatedAt, original.CreatedAt)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertTransaction(ctx, testUser, sampleTransaction("t-1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, testUser, "t-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, testUser, "t-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, testUser, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestTransactionsScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertTransaction(ctx, testUser, sampleTransaction("t-1")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	list, err := repo.ListTransactions(ctx, "outro_usuario")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no transactions for other user, got %d", len(list))
	}
}

func TestIncomeLazyZeroAndUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetIncome(ctx, testUser, "2025-03")
	if err != nil {
		t.Fatalf("get income: %v", err)
	}
	if got.Total().Cents != 0 {
		t.Fatalf("absent month must read as zero income, got %+v", got)
	}

	want := core.Income{
		Salary:  core.Money{Cents: 500000},
		Advance: core.Money{Cents: 100000},
		Extras:  core.Money{Cents: 2500},
	}
	if err := repo.UpsertIncome(ctx, testUser, "2025-03", want); err != nil {
		t.Fatalf("upsert income: %v", err)
	}

	got, err = repo.GetIncome(ctx, testUser, "2025-03")
	if err != nil {
		t.Fatalf("get income: %v", err)
	}
	if got != want {
		t.Fatalf("income mismatch: got %+v want %+v", got, want)
	}

	all, err := repo.ListIncomes(ctx, testUser)
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(all) != 1 || all["2025-03"] != want {
		t.Fatalf("unexpected incomes map: %+v", all)
	}
}

func TestSettingsDefaultsAndReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetSettings(ctx, testUser)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got[core.CategoryFixed] != 40 || got[core.CategoryFreedom] != 25 {
		t.Fatalf("expected defaults before first save, got %+v", got)
	}

	if err := repo.EnsureDefaults(ctx, testUser); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	replacement := core.AllocationSettings{
		core.CategoryFixed:     50,
		core.CategoryComfort:   10,
		core.CategoryGoals:     10,
		core.CategoryPleasures: 10,
		core.CategoryFreedom:   15,
		core.CategoryKnowledge: 5,
	}
	if err := repo.ReplaceSettings(ctx, testUser, replacement); err != nil {
		t.Fatalf("replace settings: %v", err)
	}

	got, err = repo.GetSettings(ctx, testUser)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	for _, c := range core.Categories() {
		if got[c] != replacement[c] {
			t.Fatalf("%s = %d, want %d", c, got[c], replacement[c])
		}
	}

	// EnsureDefaults must not clobber saved settings.
	if err := repo.EnsureDefaults(ctx, testUser); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	got, err = repo.GetSettings(ctx, testUser)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got[core.CategoryFixed] != 50 {
		t.Fatal("EnsureDefaults overwrote saved settings")
	}
}
