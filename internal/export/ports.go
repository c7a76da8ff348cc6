// Package export defines the spreadsheet-mirror ports. The mirror
// holds one row per transaction: date, description, category label and
// amount with a comma decimal separator.
package export

import (
	"context"

	"bolso/internal/core"
)

// Row is one mirrored transaction. TransactionID travels with the row
// so a later delete can find it.
type Row struct {
	TransactionID string
	Date          string // ISO YYYY-MM-DD
	Description   string
	CategoryLabel string
	Amount        core.Money
}

// RowFromTransaction builds the mirror row for a transaction.
func RowFromTransaction(t core.Transaction) Row {
	return Row{
		TransactionID: t.ID,
		Date:          t.Date.ISO(),
		Description:   t.Description,
		CategoryLabel: t.Category.Label(),
		Amount:        t.Amount,
	}
}

// Ports for outbound adapters.
type (
	RowAppender interface {
		Append(ctx context.Context, row Row) (rowRef string, err error)
	}

	RowDeleter interface {
		Delete(ctx context.Context, transactionID string) error
	}
)
