package core

import (
	"sort"
	"strings"
)

// exportDelimiter separates columns in the export table. Semicolons,
// because amounts use a comma as decimal separator.
const exportDelimiter = ";"

// ExportRow projects a transaction into the four export columns.
func ExportRow(t Transaction) []string {
	return []string{
		t.Date.ISO(),
		t.Description,
		t.Category.Label(),
		t.Amount.FormatComma(),
	}
}

// BuildExport renders a delimited text table of the transactions in
// month, optionally narrowed to one category (empty keeps all). Rows
// are ordered by date, then creation time for same-day entries. Pure
// projection: no domain invariants of its own.
func BuildExport(transactions []Transaction, month MonthKey, category Category) string {
	filtered := make([]Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !month.Contains(t.Date) {
			continue
		}
		if category != "" && t.Category != category {
			continue
		}
		filtered = append(filtered, t)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date.Time) {
			return filtered[i].Date.Before(filtered[j].Date.Time)
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	var b strings.Builder
	b.WriteString(strings.Join([]string{"data", "descricao", "categoria", "valor"}, exportDelimiter))
	b.WriteString("\n")
	for _, t := range filtered {
		b.WriteString(strings.Join(ExportRow(t), exportDelimiter))
		b.WriteString("\n")
	}
	return b.String()
}
