package suggestion

import (
	"context"
	"strings"

	"grocery-storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("suggestion_repo")}
}

func (r *postgresRepo) Record(ctx context.Context, term string) error {
	const q = `
INSERT INTO search_terms (term, hits, last_used_at)
VALUES ($1, 1, now())
ON CONFLICT (term) DO UPDATE SET
    hits = search_terms.hits + 1,
    last_used_at = now()
`
	if _, err := r.pool.Exec(ctx, q, term); err != nil {
		r.logger.Warn("record failed", zap.String("term", term), zap.Error(err))
		return err
	}
	r.logger.Debug("recorded", zap.String("term", term))
	return nil
}

func (r *postgresRepo) Suggest(ctx context.Context, prefix string, limit int) ([]domain.SearchTerm, error) {
	const q = `
SELECT term, hits, weight, last_used_at
FROM search_terms
WHERE term LIKE $1 || '%'
ORDER BY weight + hits DESC, last_used_at DESC, term
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, escapeLike(prefix), limit)
	if err != nil {
		r.logger.Warn("suggest failed", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.SearchTerm, 0, limit)
	for rows.Next() {
		var t domain.SearchTerm
		if err := rows.Scan(&t.Term, &t.Hits, &t.Weight, &t.LastUsedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn("suggest rows failed", zap.String("prefix", prefix), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("suggest", zap.String("prefix", prefix), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, term domain.SearchTerm) (*domain.SearchTerm, error) {
	const q = `
INSERT INTO search_terms (term, weight)
VALUES ($1, $2)
ON CONFLICT (term) DO UPDATE SET
    weight = EXCLUDED.weight
RETURNING term, hits, weight, last_used_at
`
	var res domain.SearchTerm
	err := r.pool.QueryRow(ctx, q, term.Term, term.Weight).Scan(&res.Term, &res.Hits, &res.Weight, &res.LastUsedAt)
	if err != nil {
		r.logger.Warn("upsert failed", zap.String("term", term.Term), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted", zap.String("term", res.Term), zap.Int64("weight", res.Weight))
	return &res, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes prefix match literally under LIKE's default escape.
func escapeLike(prefix string) string {
	return likeEscaper.Replace(prefix)
}
