package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// EmbeddingRepo хранит эмбеддинги продуктов в коллекции Qdrant с косинусной метрикой.
// Идентификатор точки совпадает с id записи в PostgreSQL.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Index сохраняет или обновляет вектор продукта.
func (q *EmbeddingRepo) Index(ctx context.Context, product *domain.Product) error {
	if product.ID <= 0 {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("product id is not assigned"))
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(uint64(product.ID)),
				Vectors: qdrant.NewVectors(product.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"article_number": product.ArticleNumber,
				}),
			},
		},
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrStoreUnavailable, err))
	}

	return nil
}

// Nearest возвращает до limit точек по убыванию косинусного сходства.
func (q *EmbeddingRepo) Nearest(ctx context.Context, query []float32, limit int, minSimilarity *float64) ([]usecase.ScoredID, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(false),
	}
	if minSimilarity != nil {
		req.ScoreThreshold = qdrant.PtrOf(float32(*minSimilarity))
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrStoreUnavailable, err))
	}

	result := make([]usecase.ScoredID, 0, len(points))
	for _, p := range points {
		result = append(result, usecase.NewScoredID(int64(p.GetId().GetNum()), domain.ClampSimilarity(float64(p.GetScore()))))
	}

	return result, nil
}

// Remove удаляет точки по id продуктов.
func (q *EmbeddingRepo) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrStoreUnavailable, err))
	}

	return nil
}
