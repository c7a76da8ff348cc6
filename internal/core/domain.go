package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransactionType discriminates what the language model extracted:
// money coming in or money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

var (
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
)

const isoDateLayout = "2006-01-02"

// Date is a calendar date with no time component. Transactions carry
// dates, not timestamps; CreatedAt exists separately for audit order.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseISODate parses a strict YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(isoDateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ISO renders the date as YYYY-MM-DD, the stored wire form.
func (d Date) ISO() string {
	return d.Format(isoDateLayout)
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// MonthKey returns the YYYY-MM key of the month containing d.
func (d Date) MonthKey() MonthKey {
	return MonthKey(d.Format("2006-01"))
}

// MonthKey identifies a calendar month as a YYYY-MM string. Incomes
// are keyed by it and reports are computed against it.
type MonthKey string

// MonthKeyOf derives the key for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKeyOf(t), nil
}

// Contains reports whether d falls inside the month. The report uses
// an exact calendar match, never a rolling 30-day window.
func (k MonthKey) Contains(d Date) bool {
	return d.MonthKey() == k
}

// Year returns the calendar year of the key.
func (k MonthKey) Year() int {
	t, _ := time.Parse("2006-01", string(k))
	return t.Year()
}

// Month returns the calendar month (1-12) of the key.
func (k MonthKey) Month() int {
	t, _ := time.Parse("2006-01", string(k))
	return int(t.Month())
}

// Transaction is a confirmed, canonical expense record.
type Transaction struct {
	ID          string
	Description string
	Amount      Money
	Category    Category
	Date        Date
	CreatedAt   time.Time
}

// Validate checks the invariants a stored transaction must satisfy.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("empty transaction id")
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(t.Category))
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Income holds the three income sub-totals of a month. Missing months
// read as the zero value; incomes are overwritten, never deleted.
type Income struct {
	Salary  Money
	Advance Money // "vale", the mid-month advance payment
	Extras  Money // catch-all, accumulates parsed INCOME entries
}

// Total is the month's full income.
func (i Income) Total() Money {
	return Money{Cents: i.Salary.Cents + i.Advance.Cents + i.Extras.Cents}
}

// ParsedInput is the structured output of the language-model parser,
// before normalization. It is untrusted: every field is validated or
// defaulted at the boundary before entering the domain.
type ParsedInput struct {
	Type        TransactionType
	Description string
	Amount      Money
	Category    Category // empty when the model omitted it (INCOME, or a classification miss)
	Date        string   // ISO YYYY-MM-DD, or empty
}
