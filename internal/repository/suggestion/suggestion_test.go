package suggestion

import (
	"context"
	"os"
	"testing"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_RecordAndSuggest(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	for _, term := range []string{"apple juice", "apples", "apples", "bananas"} {
		if err := repo.Record(ctx, term); err != nil {
			t.Fatalf("Record %q: %v", term, err)
		}
	}

	got, err := repo.Suggest(ctx, "app", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Term != "apples" || got[0].Hits != 2 {
		t.Fatalf("expected apples with 2 hits first, got %+v", got[0])
	}

	limited, err := repo.Suggest(ctx, "", 1)
	if err != nil {
		t.Fatalf("Suggest limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestPostgres_UpsertKeepsHits(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	if err := repo.Record(ctx, "oat milk"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	res, err := repo.Upsert(ctx, domain.SearchTerm{Term: "oat milk", Weight: 50})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if res.Hits != 1 || res.Weight != 50 {
		t.Fatalf("unexpected upsert result %+v", res)
	}

	if _, err := repo.Upsert(ctx, domain.SearchTerm{Term: "rice", Weight: 5}); err != nil {
		t.Fatalf("Upsert new: %v", err)
	}
	got, err := repo.Suggest(ctx, "", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 || got[0].Term != "oat milk" {
		t.Fatalf("expected weighted term first, got %+v", got)
	}
}

func TestPostgres_SuggestTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	if err := repo.Record(ctx, "flour"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := repo.Suggest(ctx, "%", 10)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no match for literal %%, got %+v", got)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE search_terms`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
