// Package services orchestrates the domain across SQLite, AMQP and the
// snapshot hub.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bolso/internal/amqp"
	"bolso/internal/core"
	"bolso/internal/storage"
)

// TransactionService is the single write path for transactions, incomes
// and settings. Reads are delegated to storage; every write republishes
// the full snapshot and, for transactions, enqueues a spreadsheet-mirror
// message.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	hub        *Hub
	userID     string
	now        func() time.Time
}

func NewTransactionService(st *storage.SQLiteRepository, amqpClient *amqp.Client, hub *Hub, userID string) *TransactionService {
	return &TransactionService{
		storage:    st,
		amqpClient: amqpClient,
		hub:        hub,
		userID:     userID,
		now:        time.Now,
	}
}

// ConfirmResult reports what a confirmed parse produced: a saved
// transaction for EXPENSE, an updated month income for INCOME.
type ConfirmResult struct {
	Type        core.TransactionType
	Transaction core.Transaction // zero unless Type is EXPENSE
	Month       core.MonthKey    // set unless Type is EXPENSE
	Income      core.Income      // zero unless Type is INCOME
}

// ConfirmParsed applies a user-confirmed parse result. editingID names
// the transaction being edited, empty for a new entry. Income entries
// accrue into the month's extras and never touch the transaction list.
func (s *TransactionService) ConfirmParsed(ctx context.Context, parsed core.ParsedInput, editingID string) (ConfirmResult, error) {
	switch parsed.Type {
	case core.TypeIncome:
		return s.confirmIncome(ctx, parsed)
	case core.TypeExpense:
		return s.confirmExpense(ctx, parsed, editingID)
	default:
		return ConfirmResult{}, fmt.Errorf("%w: %q", core.ErrInvalidType, string(parsed.Type))
	}
}

func (s *TransactionService) confirmIncome(ctx context.Context, parsed core.ParsedInput) (ConfirmResult, error) {
	incomes, err := s.storage.ListIncomes(ctx, s.userID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load incomes: %w", err)
	}

	month, income, err := core.AccrueIncome(parsed, incomes, s.now())
	if err != nil {
		return ConfirmResult{}, err
	}

	if err := s.storage.UpsertIncome(ctx, s.userID, month, income); err != nil {
		return ConfirmResult{}, fmt.Errorf("save income: %w", err)
	}

	slog.InfoContext(ctx, "Income accrued",
		"month_key", string(month),
		"amount_cents", parsed.Amount.Cents,
		"extras_cents", income.Extras.Cents)

	return ConfirmResult{Type: core.TypeIncome, Month: month, Income: income}, nil
}

func (s *TransactionService) confirmExpense(ctx context.Context, parsed core.ParsedInput, editingID string) (ConfirmResult, error) {
	var editing *core.Transaction
	if editingID != "" {
		original, err := s.storage.GetTransaction(ctx, s.userID, editingID)
		if err != nil {
			return ConfirmResult{}, err
		}
		editing = &original
	}

	tx, err := core.Normalize(parsed, editing, s.now())
	if err != nil {
		return ConfirmResult{}, err
	}

	if err := s.storage.UpsertTransaction(ctx, s.userID, tx); err != nil {
		return ConfirmResult{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, tx.ID)
	s.notifySnapshot(ctx)

	return ConfirmResult{Type: core.TypeExpense, Transaction: tx}, nil
}

// DeleteTransaction removes a transaction and enqueues the mirror-row
// removal. The mirror message carries the row data since the record is
// gone once the delete commits.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := s.storage.GetTransaction(ctx, s.userID, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteTransaction(ctx, s.userID, id); err != nil {
		return err
	}

	s.publishDelete(ctx, tx)
	s.notifySnapshot(ctx)
	return nil
}

// ListTransactions returns the full snapshot, ordered by date then
// creation time.
func (s *TransactionService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, s.userID)
}

// GetReport computes the monthly report from current state.
func (s *TransactionService) GetReport(ctx context.Context, month core.MonthKey) (core.MonthlyReport, error) {
	transactions, err := s.storage.ListTransactions(ctx, s.userID)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load transactions: %w", err)
	}
	income, err := s.storage.GetIncome(ctx, s.userID, month)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load income: %w", err)
	}
	settings, err := s.storage.GetSettings(ctx, s.userID)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load settings: %w", err)
	}
	return core.Aggregate(transactions, income, settings, month), nil
}

// UpdateIncome overwrites one month's income record. Sub-fields may be
// zero but never negative.
func (s *TransactionService) UpdateIncome(ctx context.Context, month core.MonthKey, income core.Income) error {
	for _, m := range []core.Money{income.Salary, income.Advance, income.Extras} {
		if m.Cents < 0 {
			return core.ErrInvalidAmount
		}
	}
	return s.storage.UpsertIncome(ctx, s.userID, month, income)
}

// GetIncome reads one month's income; absent months are zero.
func (s *TransactionService) GetIncome(ctx context.Context, month core.MonthKey) (core.Income, error) {
	return s.storage.GetIncome(ctx, s.userID, month)
}

// GetSettings returns the allocation settings, defaults included.
func (s *TransactionService) GetSettings(ctx context.Context) (core.AllocationSettings, error) {
	return s.storage.GetSettings(ctx, s.userID)
}

// UpdateSettings replaces the allocation settings after checking that
// the percentages sum to exactly 100.
func (s *TransactionService) UpdateSettings(ctx context.Context, settings core.AllocationSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.storage.ReplaceSettings(ctx, s.userID, settings)
}

// BuildExport renders the delimited export table for a month, narrowed
// to one category when given.
func (s *TransactionService) BuildExport(ctx context.Context, month core.MonthKey, category core.Category) (string, error) {
	transactions, err := s.storage.ListTransactions(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("load transactions: %w", err)
	}
	return core.BuildExport(transactions, month, category), nil
}

func (s *TransactionService) publishSync(ctx context.Context, id string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, id); err != nil {
		// Don't fail the request, the transaction is saved locally.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", id, "error", err)
	}
}

func (s *TransactionService) publishDelete(ctx context.Context, tx core.Transaction) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return
	}
	msg := amqp.NewTransactionDeleteMessage(tx.ID, tx.Date.ISO(), tx.Description, tx.Category.Label(), tx.Amount.Cents)
	if err := s.amqpClient.PublishTransactionDelete(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"transaction_id", tx.ID, "error", err)
	}
}

func (s *TransactionService) notifySnapshot(ctx context.Context) {
	if s.hub == nil {
		return
	}
	snapshot, err := s.storage.ListTransactions(ctx, s.userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load snapshot for listeners", "error", err)
		return
	}
	s.hub.Publish(snapshot)
}

// Close closes storage and the AMQP connection.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
