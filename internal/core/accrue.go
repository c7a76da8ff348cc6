package core

import (
	"fmt"
	"time"
)

// AccrueIncome folds a parsed INCOME entry into the right month's
// income record, adding the amount to the extras sub-total. Salary and
// advance are only ever edited through the income form; this is the
// single path by which a parse result becomes income.
//
// The target month comes from the parsed date when present, otherwise
// from now. Months absent from existing start from zero.
func AccrueIncome(parsed ParsedInput, existing map[MonthKey]Income, now time.Time) (MonthKey, Income, error) {
	if parsed.Type != TypeIncome {
		return "", Income{}, fmt.Errorf("%w: %q", ErrInvalidType, string(parsed.Type))
	}

	key := MonthKeyOf(now)
	if d, err := ParseISODate(parsed.Date); err == nil {
		key = d.MonthKey()
	}

	income := existing[key]
	income.Extras = Money{Cents: income.Extras.Cents + parsed.Amount.Cents}

	return key, income, nil
}
