package core

import "fmt"

// AllocationSettings maps each category to its share of total income,
// in whole percent. A per-user singleton: replaced whole, never
// patched field by field.
type AllocationSettings map[Category]int

// DefaultSettings returns the out-of-the-box allocation.
func DefaultSettings() AllocationSettings {
	s := make(AllocationSettings, len(categoryInfo))
	for c, info := range categoryInfo {
		s[c] = info.DefaultPercent
	}
	return s
}

// InvalidSumError reports a settings set whose percentages do not
// total exactly 100. Sum carries the actual total so the caller can
// tell the user how far off they are.
type InvalidSumError struct {
	Sum int
}

func (e *InvalidSumError) Error() string {
	return fmt.Sprintf("allocation percentages must total 100, got %d", e.Sum)
}

// Validate gates persistence: a settings set is committable only when
// the six percentages sum to exactly 100, no tolerance. The previous
// valid settings stay authoritative until a valid replacement lands.
// Percentages are expected to be clamped to non-negative integers by
// the boundary before reaching here.
func (s AllocationSettings) Validate() error {
	sum := 0
	for _, c := range Categories() {
		sum += s[c]
	}
	if sum != 100 {
		return &InvalidSumError{Sum: sum}
	}
	return nil
}

// Clone returns an independent copy, so a report never aliases the
// caller's map.
func (s AllocationSettings) Clone() AllocationSettings {
	out := make(AllocationSettings, len(s))
	for c, p := range s {
		out[c] = p
	}
	return out
}
