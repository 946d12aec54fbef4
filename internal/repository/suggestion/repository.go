package suggestion

import (
	"context"

	"grocery-storefront/internal/domain"
)

type Repository interface {
	// Record bumps the hit count of a normalised term, inserting it if new.
	Record(ctx context.Context, term string) error
	// Suggest returns up to limit terms starting with prefix, best first.
	Suggest(ctx context.Context, prefix string, limit int) ([]domain.SearchTerm, error)
	// Upsert sets the editorial weight of a term, keeping its hits.
	Upsert(ctx context.Context, term domain.SearchTerm) (*domain.SearchTerm, error)
}
