package usecase

import (
	"context"

	"github.com/DRSN-tech/product-matcher/internal/domain"
)

// ProductRepository — хранилище записей каталога.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	ExistsByArticleNumber(ctx context.Context, articleNumber string) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	GetByArticleNumber(ctx context.Context, articleNumber string) (*domain.Product, error)
	GetByBarcode(ctx context.Context, barcode string) ([]domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
	Delete(ctx context.Context, id int64) error
}

// VectorIndex — примитив поиска ближайших соседей по косинусному сходству.
type VectorIndex interface {
	Index(ctx context.Context, product *domain.Product) error
	// Nearest возвращает до limit кандидатов по убыванию сходства.
	// minSimilarity == nil означает поиск без порога.
	Nearest(ctx context.Context, query []float32, limit int, minSimilarity *float64) ([]ScoredID, error)
	Remove(ctx context.Context, ids []int64) error
}

// ImageRepository — хранилище байтов изображений.
type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// CacheRepository — кэш продуктов по штрихкоду.
type CacheRepository interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	SetByBarcode(ctx context.Context, product *domain.Product) error
	DeleteBarcodes(ctx context.Context, barcodes []string) error
}

// OutboxRepository — таблица исходящих событий, запись выполняется в транзакции вызывающего.
type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// TxManager выполняет fn в одной транзакции; транзакция передаётся через ctx.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
