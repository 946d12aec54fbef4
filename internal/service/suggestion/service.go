package suggestion

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/repository/suggestion"
)

const (
	minTermLen   = 2
	maxTermLen   = 64
	DefaultLimit = 8
	maxLimit     = 50
)

type Service struct {
	repo suggestion.Repository
}

func New(repo suggestion.Repository) *Service {
	return &Service{repo: repo}
}

// Normalize trims, lower-cases and collapses inner whitespace. Terms outside
// 2..64 characters after normalising are rejected with domain.ErrInvalidTerm.
func Normalize(term string) (string, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(term), " "))
	if n := utf8.RuneCountInString(norm); n < minTermLen || n > maxTermLen {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTerm, term)
	}
	return norm, nil
}

func (s *Service) Record(ctx context.Context, term string) error {
	norm, err := Normalize(term)
	if err != nil {
		return err
	}
	return s.repo.Record(ctx, norm)
}

// Suggest lists stored terms beginning with prefix. A blank prefix returns
// the overall most popular terms.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]domain.SearchTerm, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	prefix = strings.ToLower(strings.Join(strings.Fields(prefix), " "))
	if utf8.RuneCountInString(prefix) > maxTermLen {
		return []domain.SearchTerm{}, nil
	}
	return s.repo.Suggest(ctx, prefix, limit)
}

func (s *Service) Upsert(ctx context.Context, term string, weight int64) (*domain.SearchTerm, error) {
	norm, err := Normalize(term)
	if err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, domain.SearchTerm{Term: norm, Weight: weight})
}
