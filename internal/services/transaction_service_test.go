package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bolso/internal/core"
	"bolso/internal/storage"
)

func newTestService(t *testing.T) *TransactionService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bolso.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := NewTransactionService(repo, nil, NewHub(), "usuario_teste")
	t.Cleanup(func() { svc.Close() })
	return svc
}

func expenseInput(description string, cents int64, category core.Category, date string) core.ParsedInput {
	return core.ParsedInput{
		Type:        core.TypeExpense,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Date:        date,
	}
}

func TestConfirmExpenseCreates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.ConfirmParsed(ctx, expenseInput("Mercado", 15990, core.CategoryFixed, "2025-03-02"), "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Type != core.TypeExpense {
		t.Fatalf("result type = %q, want EXPENSE", result.Type)
	}
	if result.Transaction.ID == "" {
		t.Fatal("expected a minted transaction id")
	}

	list, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Description != "Mercado" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestConfirmExpenseEditKeepsIdentity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.ConfirmParsed(ctx, expenseInput("Mercado", 15990, core.CategoryFixed, "2025-03-02"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edited, err := svc.ConfirmParsed(ctx, expenseInput("Mercado do mês", 20000, core.CategoryComfort, "2025-03-03"), first.Transaction.ID)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Transaction.ID != first.Transaction.ID {
		t.Fatalf("edit minted a new id: %s != %s", edited.Transaction.ID, first.Transaction.ID)
	}
	if !edited.Transaction.CreatedAt.Equal(first.Transaction.CreatedAt) {
		t.Fatal("edit moved CreatedAt")
	}

	list, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Description != "Mercado do mês" || list[0].Amount.Cents != 20000 {
		t.Fatalf("edit not applied: %+v", list)
	}
}

func TestConfirmExpenseEditMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ConfirmParsed(context.Background(), expenseInput("Mercado", 100, core.CategoryFixed, ""), "no-such-id")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing editing id, got %v", err)
	}
}

func TestConfirmIncomeAccruesExtras(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	income := core.ParsedInput{
		Type:        core.TypeIncome,
		Description: "Freelance",
		Amount:      core.Money{Cents: 5000},
		Date:        "2025-03-15",
	}

	result, err := svc.ConfirmParsed(ctx, income, "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Month != "2025-03" || result.Income.Extras.Cents != 5000 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// A second entry in the same month adds on top.
	income.Amount = core.Money{Cents: 7000}
	result, err = svc.ConfirmParsed(ctx, income, "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Income.Extras.Cents != 12000 {
		t.Fatalf("extras = %d, want 12000", result.Income.Extras.Cents)
	}

	// Income never lands in the transaction list.
	list, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("income leaked into transactions: %+v", list)
	}
}

func TestDeleteTransaction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.ConfirmParsed(ctx, expenseInput("Cinema", 3000, core.CategoryPleasures, "2025-03-08"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteTransaction(ctx, created.Transaction.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, created.Transaction.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestHubReceivesSnapshots(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ch, cancel := svc.hub.Subscribe()
	defer cancel()

	if _, err := svc.ConfirmParsed(ctx, expenseInput("Padaria", 1250, core.CategoryComfort, "2025-03-04"), ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].Description != "Padaria" {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestUpdateSettingsRejectsBadSum(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	bad := core.DefaultSettings()
	bad[core.CategoryFixed] = 41

	err := svc.UpdateSettings(ctx, bad)
	var sumErr *core.InvalidSumError
	if !errors.As(err, &sumErr) {
		t.Fatalf("expected InvalidSumError, got %v", err)
	}
	if sumErr.Sum != 101 {
		t.Fatalf("reported sum = %d, want 101", sumErr.Sum)
	}

	// Stored settings must be untouched.
	got, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got[core.CategoryFixed] != 40 {
		t.Fatalf("settings changed despite invalid sum: %+v", got)
	}
}

func TestUpdateIncomeRejectsNegative(t *testing.T) {
	svc := newTestService(t)

	err := svc.UpdateIncome(context.Background(), "2025-03", core.Income{Salary: core.Money{Cents: -1}})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGetReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.UpdateIncome(ctx, "2025-03", core.Income{Salary: core.Money{Cents: 100000}}); err != nil {
		t.Fatalf("update income: %v", err)
	}
	if _, err := svc.ConfirmParsed(ctx, expenseInput("Mercado", 50000, core.CategoryFixed, "2025-03-02"), ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// A different month must not leak in.
	if _, err := svc.ConfirmParsed(ctx, expenseInput("Mercado", 9900, core.CategoryFixed, "2025-04-02"), ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	report, err := svc.GetReport(ctx, "2025-03")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.TotalIncome.Cents != 100000 || report.TotalExpenses.Cents != 50000 {
		t.Fatalf("unexpected totals: %+v", report)
	}

	var fixed core.CategoryStat
	for _, stat := range report.Categories {
		if stat.Category == core.CategoryFixed {
			fixed = stat
		}
	}
	if fixed.LimitAmount.Cents != 40000 {
		t.Fatalf("FIXED limit = %d, want 40000", fixed.LimitAmount.Cents)
	}
	if fixed.PercentUsed != 125 || !fixed.OverLimit {
		t.Fatalf("unexpected FIXED stat: %+v", fixed)
	}
}
