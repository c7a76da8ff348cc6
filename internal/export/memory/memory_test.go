package memory

import (
	"context"
	"testing"

	"bolso/internal/core"
	"bolso/internal/export"
)

func sampleRow(id string) export.Row {
	return export.Row{
		TransactionID: id,
		Date:          "2025-03-02",
		Description:   "Mercado",
		CategoryLabel: "Custos Fixos",
		Amount:        core.Money{Cents: 15990},
	}
}

func TestAppendAndDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.Append(ctx, sampleRow("t-1"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q, want mem:1", ref)
	}
	if _, err := store.Append(ctx, sampleRow("t-2")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.Delete(ctx, "t-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 || rows[0].TransactionID != "t-2" {
		t.Fatalf("unexpected rows after delete: %+v", rows)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	store := New()
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete missing should be a no-op, got %v", err)
	}
}

func TestRowFromTransaction(t *testing.T) {
	tx := core.Transaction{
		ID:          "t-1",
		Description: "Cinema",
		Amount:      core.Money{Cents: 3050},
		Category:    core.CategoryPleasures,
		Date:        core.NewDate(2025, 3, 8),
	}
	row := export.RowFromTransaction(tx)
	if row.Date != "2025-03-08" || row.CategoryLabel != "Prazeres" || row.Amount.Cents != 3050 {
		t.Fatalf("unexpected row: %+v", row)
	}
}
