package cartstore

import (
	"context"
	"fmt"

	"grocery-storefront/internal/domain"
)

// ClampQuantity keeps a stepped quantity at or above the floor of 1.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// IncrementItem raises a line's quantity by one.
func (s *Store) IncrementItem(ctx context.Context, lineID int64) (*domain.Cart, error) {
	return s.step(ctx, lineID, +1)
}

// DecrementItem lowers a line's quantity by one, stopping at 1. Decrementing
// a line already at 1 makes no backend call; removal is explicit.
func (s *Store) DecrementItem(ctx context.Context, lineID int64) (*domain.Cart, error) {
	return s.step(ctx, lineID, -1)
}

func (s *Store) step(ctx context.Context, lineID int64, delta int) (*domain.Cart, error) {
	current := s.State().Cart
	line, ok := current.Line(lineID)
	if !ok {
		return nil, fmt.Errorf("cart line %d: %w", lineID, domain.ErrNotFound)
	}
	next := ClampQuantity(line.Quantity + delta)
	if next == line.Quantity {
		return current, nil
	}
	return s.UpdateCartItem(ctx, lineID, next)
}
