package usecase

import (
	"context"

	"github.com/DRSN-tech/product-matcher/internal/domain"
)

type CatalogUC interface {
	SaveProduct(ctx context.Context, req *SaveProductReq) (*domain.Product, error)
	EmbedImage(ctx context.Context, image *ProductImage) ([]float32, error)
	GetByArticleNumber(ctx context.Context, articleNumber string) (*domain.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	FindNearest(ctx context.Context, req *FindNearestReq) ([]ScoredProduct, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type MatcherUC interface {
	Match(ctx context.Context, req *MatchReq) (*MatchRes, error)
	FindSimilarToProduct(ctx context.Context, articleNumber string, topK int) ([]Match, error)
	SuggestMetadata(ctx context.Context, description string) (*SuggestionRes, error)
}

type MaintenanceUC interface {
	ComputeStats(ctx context.Context) (*CatalogStats, error)
	SweepOrphans(ctx context.Context) (*SweepRes, error)
	BackfillNormalization(ctx context.Context) (*BackfillRes, error)
}
