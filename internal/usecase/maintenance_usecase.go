package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

// MaintenanceUseCase сверяет записи каталога с хранилищем изображений.
type MaintenanceUseCase struct {
	catalog     *CatalogUseCase
	productRepo ProductRepository
	vectorIndex VectorIndex
	imageRepo   ImageRepository
	logger      logger.Logger
	cfg         *cfg.CatalogCfg
	now         func() time.Time
}

func NewMaintenanceUC(
	catalog *CatalogUseCase,
	productRepo ProductRepository,
	vectorIndex VectorIndex,
	imageRepo ImageRepository,
	logger logger.Logger,
	cfg *cfg.CatalogCfg,
) *MaintenanceUseCase {
	return &MaintenanceUseCase{
		catalog:     catalog,
		productRepo: productRepo,
		vectorIndex: vectorIndex,
		imageRepo:   imageRepo,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ComputeStats считает валидные записи, записи со штрихкодом, созданные за сутки и сироты.
func (m *MaintenanceUseCase) ComputeStats(ctx context.Context) (*CatalogStats, error) {
	const op = "MaintenanceUseCase.ComputeStats"

	products, err := m.productRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	exists, err := checkImages(ctx, m.imageRepo, products, m.cfg.MaxConcurrentChecks)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	now := m.now()
	since := now.Add(-24 * time.Hour)

	stats := &CatalogStats{Total: len(products), ComputedAt: now}
	for i, p := range products {
		if !exists[i] {
			continue
		}

		stats.Valid++
		if p.HasBarcode() {
			stats.WithBarcode++
		}
		if p.CreatedAt.After(since) {
			stats.CreatedLast24h++
		}
	}
	stats.Orphans = stats.Total - stats.Valid

	return stats, nil
}

// SweepOrphans удаляет записи, у которых задан image_path, но файл отсутствует.
// Ошибка удаления одной записи не прерывает обход.
func (m *MaintenanceUseCase) SweepOrphans(ctx context.Context) (*SweepRes, error) {
	const op = "MaintenanceUseCase.SweepOrphans"

	products, err := m.productRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	exists, err := checkImages(ctx, m.imageRepo, products, m.cfg.MaxConcurrentChecks)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &SweepRes{}
	for i := range products {
		p := &products[i]
		if p.ImagePath == "" || exists[i] {
			continue
		}

		if err := m.catalog.removeProduct(ctx, p, "image missing"); err != nil {
			if errors.Is(err, e.ErrStoreUnavailable) {
				return nil, e.Wrap(op, err)
			}

			m.logger.Warnf("Failed to remove orphaned product. id: %d, error: %v", p.ID, e.Wrap(op, err))
			res.Failed++
			continue
		}

		res.Removed++
	}

	if res.Removed > 0 {
		m.logger.Infof("orphan sweep removed %d product(s)", res.Removed)
	}

	return res, nil
}

// BackfillNormalization перенормализует эмбеддинги, сохранённые без нормализации,
// и заново записывает в индекс все невырожденные векторы: так восстанавливаются точки,
// не попавшие в индекс после коммита. Записи с нулевым вектором не изменяются и перечисляются в ответе.
func (m *MaintenanceUseCase) BackfillNormalization(ctx context.Context) (*BackfillRes, error) {
	const op = "MaintenanceUseCase.BackfillNormalization"

	products, err := m.productRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &BackfillRes{Scanned: len(products)}
	for i := range products {
		p := &products[i]

		if err := domain.CheckDimension(p.Embedding, m.cfg.VectorSize); err != nil {
			return nil, e.Wrap(op, e.Wrap(p.ArticleNumber, err))
		}

		if !domain.IsNormalized(p.Embedding) {
			normalized, err := domain.Normalize(p.Embedding)
			if errors.Is(err, e.ErrDegenerateVector) {
				res.Degenerate = append(res.Degenerate, p.ArticleNumber)
				continue
			}
			if err != nil {
				return nil, e.Wrap(op, err)
			}

			if err := m.productRepo.UpdateEmbedding(ctx, p.ID, normalized); err != nil {
				return nil, e.Wrap(op, err)
			}

			p.Embedding = normalized
			res.Updated++
		}

		// Upsert идемпотентен, повторный запуск ничего не портит
		if err := m.vectorIndex.Index(ctx, p); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	if res.Updated > 0 || len(res.Degenerate) > 0 {
		m.logger.Infof("embedding backfill: updated=%d degenerate=%d", res.Updated, len(res.Degenerate))
	}

	return res, nil
}
