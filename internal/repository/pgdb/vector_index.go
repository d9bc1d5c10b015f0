package pgdb

import (
	"context"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/pgvector/pgvector-go"
)

// PgvectorIndex ищет ближайших соседей оператором <=> по столбцу products.embedding.
// Вектор хранится в самой записи, поэтому Index и Remove ничего не делают.
type PgvectorIndex struct {
	pool *pgxpool.Pool
}

func NewPgvectorIndex(pool *pgxpool.Pool) *PgvectorIndex {
	return &PgvectorIndex{pool: pool}
}

func (i *PgvectorIndex) Index(_ context.Context, _ *domain.Product) error {
	return nil
}

func (i *PgvectorIndex) Remove(_ context.Context, _ []int64) error {
	return nil
}

// Nearest возвращает до limit записей по возрастанию косинусного расстояния.
// Порог задаётся через расстояние: similarity >= min эквивалентно distance <= 1 - min.
func (i *PgvectorIndex) Nearest(ctx context.Context, query []float32, limit int, minSimilarity *float64) ([]usecase.ScoredID, error) {
	var q Querier = i.pool
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		q = tx
	}

	vec := pgvector.NewVector(query)
	sql := `
		SELECT id, embedding <=> $1 AS cosine_dist
		FROM products
		ORDER BY cosine_dist, id
		LIMIT $2`
	args := []any{vec, limit}

	if minSimilarity != nil {
		sql = `
			SELECT id, embedding <=> $1 AS cosine_dist
			FROM products
			WHERE embedding <=> $1 <= $3
			ORDER BY cosine_dist, id
			LIMIT $2`
		args = append(args, 1-*minSimilarity)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ScoredID, 0, limit)
	for rows.Next() {
		var (
			id       int64
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, storeErr(whereami.WhereAmI(), err)
		}

		result = append(result, usecase.NewScoredID(id, domain.SimilarityFromCosineDistance(distance)))
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}

	return result, nil
}
