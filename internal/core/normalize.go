package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Normalize turns a confirmed EXPENSE parse result into a canonical
// Transaction ready for persistence. Pure transform, no side effects.
//
// Rules, in order:
//  1. A missing category defaults to FIXED. This papers over a
//     classification miss by the upstream model; see the needs-review
//     discussion in DESIGN.md.
//  2. The parsed date wins when well-formed; otherwise the original's
//     date when editing; otherwise today.
//  3. Editing keeps the original's id and CreatedAt; creating mints a
//     fresh id and stamps CreatedAt = now.
//
// The amount passes through verbatim: sign and magnitude were already
// vetted (or not) at the boundary, not here.
func Normalize(parsed ParsedInput, editing *Transaction, now time.Time) (Transaction, error) {
	if parsed.Type != TypeExpense {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, string(parsed.Type))
	}

	category := parsed.Category
	if category == "" {
		category = CategoryFixed
	}
	if !category.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(category))
	}

	date, err := ParseISODate(parsed.Date)
	if err != nil {
		if editing != nil {
			date = editing.Date
		} else {
			date = DateOf(now)
		}
	}

	if editing != nil {
		return Transaction{
			ID:          editing.ID,
			Description: parsed.Description,
			Amount:      parsed.Amount,
			Category:    category,
			Date:        date,
			CreatedAt:   editing.CreatedAt,
		}, nil
	}

	return Transaction{
		ID:          uuid.NewString(),
		Description: parsed.Description,
		Amount:      parsed.Amount,
		Category:    category,
		Date:        date,
		CreatedAt:   now,
	}, nil
}
