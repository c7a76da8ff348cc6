package core

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func TestNormalizeCreates(t *testing.T) {
	parsed := ParsedInput{
		Type:        TypeExpense,
		Description: "Mercado",
		Amount:      Money{Cents: 15990},
		Category:    CategoryFixed,
		Date:        "2025-03-02",
	}

	got, err := Normalize(parsed, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected a minted id")
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
	}
	if got.Date.ISO() != "2025-03-02" {
		t.Fatalf("date = %s, want 2025-03-02", got.Date.ISO())
	}
	if got.Amount.Cents != 15990 || got.Category != CategoryFixed {
		t.Fatalf("unexpected record: %+v", got)
	}

	other, err := Normalize(parsed, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == got.ID {
		t.Fatal("two creations must mint distinct ids")
	}
}

func TestNormalizeDefaultsMissingCategoryToFixed(t *testing.T) {
	parsed := ParsedInput{
		Type:        TypeExpense,
		Description: "Sem categoria",
		Amount:      Money{Cents: 1000},
	}
	got, err := Normalize(parsed, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != CategoryFixed {
		t.Fatalf("category = %s, want FIXED", got.Category)
	}
}

func TestNormalizeDateFallbacks(t *testing.T) {
	original := Transaction{
		ID:          "t-1",
		Description: "Aluguel",
		Amount:      Money{Cents: 120000},
		Category:    CategoryFixed,
		Date:        NewDate(2025, 2, 5),
		CreatedAt:   testNow.AddDate(0, -1, 0),
	}

	cases := []struct {
		name    string
		date    string
		editing *Transaction
		want    string
	}{
		{"parsed date wins", "2025-03-07", &original, "2025-03-07"},
		{"editing keeps original date", "", &original, "2025-02-05"},
		{"malformed date keeps original", "07/03/2025", &original, "2025-02-05"},
		{"creating falls back to today", "", nil, "2025-03-10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParsedInput{
				Type:        TypeExpense,
				Description: "Aluguel",
				Amount:      Money{Cents: 120000},
				Category:    CategoryFixed,
				Date:        tc.date,
			}
			got, err := Normalize(parsed, tc.editing, testNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Date.ISO() != tc.want {
				t.Fatalf("date = %s, want %s", got.Date.ISO(), tc.want)
			}
		})
	}
}

func TestNormalizeEditPreservesIdentity(t *testing.T) {
	createdAt := testNow.AddDate(0, -2, 0)
	original := Transaction{
		ID:          "keep-me",
		Description: "Internet",
		Amount:      Money{Cents: 9900},
		Category:    CategoryFixed,
		Date:        NewDate(2025, 1, 10),
		CreatedAt:   createdAt,
	}
	parsed := ParsedInput{
		Type:        TypeExpense,
		Description: "Internet fibra",
		Amount:      Money{Cents: 10900},
		Category:    CategoryComfort,
		Date:        "2025-01-12",
	}

	got, err := Normalize(parsed, &original, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != original.ID {
		t.Fatalf("id = %s, want %s", got.ID, original.ID)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, createdAt)
	}
	if got.Description != "Internet fibra" || got.Amount.Cents != 10900 || got.Category != CategoryComfort {
		t.Fatalf("fields not overwritten: %+v", got)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	first, err := Normalize(ParsedInput{
		Type:        TypeExpense,
		Description: "Cinema",
		Amount:      Money{Cents: 4500},
		Category:    CategoryPleasures,
		Date:        "2025-03-08",
	}, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := Normalize(ParsedInput{
		Type:        TypeExpense,
		Description: first.Description,
		Amount:      first.Amount,
		Category:    first.Category,
		Date:        first.Date.ISO(),
	}, &first, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != first {
		t.Fatalf("round-trip changed the record:\n first=%+v\n again=%+v", first, again)
	}
}

func TestNormalizeRejectsWrongType(t *testing.T) {
	_, err := Normalize(ParsedInput{Type: TypeIncome, Description: "Salário", Amount: Money{Cents: 100}}, nil, testNow)
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestNormalizeRejectsUnknownCategory(t *testing.T) {
	_, err := Normalize(ParsedInput{
		Type:        TypeExpense,
		Description: "x",
		Amount:      Money{Cents: 100},
		Category:    Category("OTHER"),
	}, nil, testNow)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}
