package seed

import (
	"context"
	"fmt"

	"grocery-storefront/internal/domain"
)

// TermWriter stores a weighted suggestion term.
type TermWriter interface {
	Upsert(ctx context.Context, term string, weight int64) (*domain.SearchTerm, error)
}

type termSeed struct {
	Term   string
	Weight int64
}

// vocabulary is the starter suggestion list for an empty store.
var vocabulary = []termSeed{
	{"milk", 40},
	{"eggs", 40},
	{"bread", 35},
	{"butter", 30},
	{"cheddar cheese", 20},
	{"greek yogurt", 20},
	{"basmati rice", 25},
	{"flour", 25},
	{"sugar", 25},
	{"olive oil", 20},
	{"sunflower oil", 15},
	{"pasta", 20},
	{"tomatoes", 20},
	{"potatoes", 25},
	{"onions", 25},
	{"apples", 20},
	{"bananas", 20},
	{"chicken breast", 15},
	{"ground coffee", 15},
	{"black tea", 15},
	{"sparkling water", 10},
	{"frozen vegetables", 10},
}

// Apply writes the starter vocabulary. Re-running it resets the seeded
// weights and leaves hit counts alone.
func Apply(ctx context.Context, w TermWriter) (int, error) {
	for i, t := range vocabulary {
		if _, err := w.Upsert(ctx, t.Term, t.Weight); err != nil {
			return i, fmt.Errorf("upsert term %q: %w", t.Term, err)
		}
	}
	return len(vocabulary), nil
}
