// Package worker mirrors confirmed transactions to the spreadsheet in
// response to AMQP messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bolso/internal/amqp"
	"bolso/internal/export"
	"bolso/internal/storage"
)

// SyncWorker applies mirror messages. Sync messages carry only an id
// and the worker reads the current record, so a stale message can never
// mirror stale data. Delete messages carry the row, the record being
// already gone.
type SyncWorker struct {
	storage  *storage.SQLiteRepository
	appender export.RowAppender
	deleter  export.RowDeleter
	userID   string
}

func NewSyncWorker(st *storage.SQLiteRepository, appender export.RowAppender, deleter export.RowDeleter, userID string) *SyncWorker {
	return &SyncWorker{
		storage:  st,
		appender: appender,
		deleter:  deleter,
		userID:   userID,
	}
}

// HandleSyncMessage mirrors one transaction. A transaction deleted
// between publish and consume is skipped, the delete message that
// follows owns the mirror row.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "transaction_id", msg.ID)

	tx, err := w.storage.GetTransaction(ctx, w.userID, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before sync, skipping", "transaction_id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	// An edited transaction may already have a mirror row; replace it.
	if w.deleter != nil {
		if err := w.deleter.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove stale mirror row: %w", err)
		}
	}

	ref, err := w.appender.Append(ctx, export.RowFromTransaction(tx))
	if err != nil {
		return fmt.Errorf("append to spreadsheet: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"transaction_id", msg.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// HandleDeleteMessage removes the mirror row for a deleted transaction.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "transaction_id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No row deleter configured, skipping mirror deletion",
			"transaction_id", msg.ID)
		return nil
	}

	if err := w.deleter.Delete(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete mirror row: %w", err)
	}

	slog.InfoContext(ctx, "Mirror row removed",
		"transaction_id", msg.ID,
		"description", msg.Description)
	return nil
}
