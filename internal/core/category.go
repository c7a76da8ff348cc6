package core

import "fmt"

// Category is one of the six fixed budget buckets. The set is closed:
// every expense must land in exactly one of these, there is no "other".
type Category string

const (
	CategoryFixed     Category = "FIXED"
	CategoryComfort   Category = "COMFORT"
	CategoryGoals     Category = "GOALS"
	CategoryPleasures Category = "PLEASURES"
	CategoryFreedom   Category = "FREEDOM"
	CategoryKnowledge Category = "KNOWLEDGE"
)

// Categories returns the closed set in display order.
func Categories() []Category {
	return []Category{
		CategoryFixed,
		CategoryComfort,
		CategoryGoals,
		CategoryPleasures,
		CategoryFreedom,
		CategoryKnowledge,
	}
}

// CategoryInfo holds the immutable presentation metadata of a bucket.
type CategoryInfo struct {
	Label          string
	Description    string
	Color          string // hex color token, presentation-only
	Icon           string // canonical icon key for the UI
	DefaultPercent int
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryFixed: {
		Label:          "Custos Fixos",
		Description:    "Contas essenciais: aluguel, luz, mercado, saúde.",
		Color:          "#3b82f6",
		Icon:           "home",
		DefaultPercent: 40,
	},
	CategoryComfort: {
		Label:          "Conforto",
		Description:    "Qualidade de vida: Uber, serviços extras.",
		Color:          "#a855f7",
		Icon:           "coffee",
		DefaultPercent: 10,
	},
	CategoryGoals: {
		Label:          "Metas",
		Description:    "Presentes, viagens, reservas de curto prazo.",
		Color:          "#f59e0b",
		Icon:           "target",
		DefaultPercent: 10,
	},
	CategoryPleasures: {
		Label:          "Prazeres",
		Description:    "Lazer: iFood, cinema, streaming.",
		Color:          "#ec4899",
		Icon:           "smile",
		DefaultPercent: 10,
	},
	CategoryFreedom: {
		Label:          "Liberdade Financeira",
		Description:    "Investimentos, aposentadoria, emergência.",
		Color:          "#10b981",
		Icon:           "trending-up",
		DefaultPercent: 25,
	},
	CategoryKnowledge: {
		Label:          "Conhecimento",
		Description:    "Cursos, livros, educação.",
		Color:          "#06b6d4",
		Icon:           "book-open",
		DefaultPercent: 5,
	},
}

// ParseCategory validates an untrusted category string against the
// closed set. Deserialization must fail fast on anything outside it
// rather than silently coercing, otherwise aggregation gets corrupted.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryInfo[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Info returns the presentation metadata for c. Zero value for unknown
// categories; callers are expected to have validated at the boundary.
func (c Category) Info() CategoryInfo {
	return categoryInfo[c]
}

// Label returns the display label for c.
func (c Category) Label() string {
	return categoryInfo[c].Label
}
