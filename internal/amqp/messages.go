package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedMessage marks payloads that cannot be decoded. Consumers
// drop these instead of requeueing, a bad payload never decodes.
var ErrMalformedMessage = errors.New("malformed message")

// TransactionSyncMessage asks the worker to mirror one transaction to
// the spreadsheet. It carries only the id; the worker fetches the
// current record from the database so stale payloads cannot win.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// TransactionDeleteMessage asks the worker to remove a row from the
// spreadsheet. The record is already gone from the database when this
// is published, so the message carries the row data itself.
type TransactionDeleteMessage struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"` // ISO YYYY-MM-DD
	Description   string    `json:"description"`
	CategoryLabel string    `json:"category_label"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionDeleteMessage(id, date, description, categoryLabel string, amountCents int64) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		ID:            id,
		Date:          date,
		Description:   description,
		CategoryLabel: categoryLabel,
		AmountCents:   amountCents,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}
