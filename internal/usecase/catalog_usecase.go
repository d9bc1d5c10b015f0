package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

// CatalogUseCase реализует хранение каталога: сохранение, точный поиск, поиск ближайших и удаление.
type CatalogUseCase struct {
	productRepo ProductRepository
	vectorIndex VectorIndex
	imageRepo   ImageRepository
	imagesInfra ImagesInfra
	mlService   MlServiceInfra
	cacheRepo   CacheRepository
	outboxRepo  OutboxRepository
	txManager   TxManager
	logger      logger.Logger
	cfg         *cfg.CatalogCfg
	now         func() time.Time
}

func NewCatalogUC(
	productRepo ProductRepository,
	vectorIndex VectorIndex,
	imageRepo ImageRepository,
	imagesInfra ImagesInfra,
	mlService MlServiceInfra,
	cacheRepo CacheRepository,
	outboxRepo OutboxRepository,
	txManager TxManager,
	logger logger.Logger,
	cfg *cfg.CatalogCfg,
) *CatalogUseCase {
	return &CatalogUseCase{
		productRepo: productRepo,
		vectorIndex: vectorIndex,
		imageRepo:   imageRepo,
		imagesInfra: imagesInfra,
		mlService:   mlService,
		cacheRepo:   cacheRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SaveProduct валидирует запрос, вычисляет нормализованный эмбеддинг, сохраняет изображение
// и создаёт запись каталога вместе с outbox-событием в одной транзакции.
func (c *CatalogUseCase) SaveProduct(ctx context.Context, req *SaveProductReq) (*domain.Product, error) {
	const op = "CatalogUseCase.SaveProduct"

	// Валидация до любых обращений к хранилищам
	articleNumber, name, barcode, err := c.validateSaveReq(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	exists, err := c.productRepo.ExistsByArticleNumber(ctx, articleNumber)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if exists {
		return nil, e.Wrap(op, e.ErrDuplicateArticle)
	}

	embedding, err := c.EmbedImage(ctx, req.Image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	imageRes, err := c.imagesInfra.UploadImage(ctx, NewUploadImageReq(articleNumber, *req.Image))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var product *domain.Product
	err = c.txManager.Do(ctx, func(ctx context.Context) error {
		// Повторная проверка внутри транзакции; гонку двух сохранений закрывает уникальный индекс
		exists, err := c.productRepo.ExistsByArticleNumber(ctx, articleNumber)
		if err != nil {
			return err
		}
		if exists {
			return e.ErrDuplicateArticle
		}

		created, err := c.productRepo.Create(ctx, domain.NewProduct(articleNumber, name, imageRes.ImageKey, barcode, embedding))
		if err != nil {
			return err
		}

		if err := c.writeEvent(ctx, domain.ProductCreated, created, ""); err != nil {
			return err
		}

		product = created
		return nil
	})
	if err != nil {
		c.logger.Warnf(
			"Cleaning up orphaned image after transaction failure. article_number: %s, error: %v",
			articleNumber,
			e.Wrap(op, err),
		)
		c.imagesInfra.CleanupImages([]string{imageRes.ImageKey})

		return nil, e.Wrap(op, err)
	}

	// Внешний индекс не участвует в транзакции, поэтому пишем в него только после коммита.
	// Запись уже сохранена: при сбое её вернёт в индекс BackfillNormalization.
	if err := c.vectorIndex.Index(ctx, product); err != nil {
		c.logger.Errorf(e.Wrap(op, err), "product %s saved but not indexed, run backfill to re-index", product.ArticleNumber)
	}

	c.logger.Infof("product saved: id=%d article_number=%s", product.ID, product.ArticleNumber)
	return product, nil
}

// EmbedImage получает вектор изображения у ML-сервиса, проверяет размерность и нормализует его.
func (c *CatalogUseCase) EmbedImage(ctx context.Context, image *ProductImage) ([]float32, error) {
	const op = "CatalogUseCase.EmbedImage"

	if image == nil || len(image.Data) == 0 {
		return nil, e.Wrap(op, e.ErrNoImage)
	}

	res, err := c.mlService.VectorizeRequest(ctx, NewVectorizeReq(*image))
	if err != nil {
		return nil, e.Wrap(op, errors.Join(e.ErrEmbeddingFailed, err))
	}

	if err := domain.CheckDimension(res.Vector, c.cfg.VectorSize); err != nil {
		return nil, e.Wrap(op, err)
	}

	normalized, err := domain.Normalize(res.Vector)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return normalized, nil
}

// GetByArticleNumber возвращает валидный продукт по артикулу.
func (c *CatalogUseCase) GetByArticleNumber(ctx context.Context, articleNumber string) (*domain.Product, error) {
	const op = "CatalogUseCase.GetByArticleNumber"

	articleNumber = domain.NormalizeArticleNumber(articleNumber)
	if err := domain.ValidateArticleNumber(articleNumber); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := c.productRepo.GetByArticleNumber(ctx, articleNumber)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	valid, err := c.isValid(ctx, product)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !valid {
		return nil, e.Wrap(op, e.ErrNotFound)
	}

	return product, nil
}

// FindByBarcode возвращает не более одного валидного продукта с указанным штрихкодом.
func (c *CatalogUseCase) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	const op = "CatalogUseCase.FindByBarcode"

	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, e.Wrap(op, e.ErrNotFound)
	}

	// Поиск в кэше
	if cached, err := c.cacheRepo.GetByBarcode(ctx, barcode); err != nil {
		c.logger.Warnf("Failed to read barcode cache: %v", e.Wrap(op, err))
	} else if cached != nil {
		valid, err := c.isValid(ctx, cached)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if valid {
			return cached, nil
		}
		c.dropCachedBarcodes(ctx, []string{barcode})
	}

	candidates, err := c.productRepo.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	valid, err := filterValid(ctx, c.imageRepo, candidates, c.cfg.MaxConcurrentChecks)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(valid) == 0 {
		return nil, e.Wrap(op, e.ErrNotFound)
	}

	product := valid[0]
	if err := c.cacheRepo.SetByBarcode(ctx, &product); err != nil {
		c.logger.Warnf("Failed to cache product by barcode: %v", e.Wrap(op, err))
	}

	return &product, nil
}

// FindNearest возвращает до TopK валидных продуктов по убыванию сходства, не ниже MinSimilarity.
// ExcludeArticle отбрасывается раньше проверки на пустоту: если с порогом не нашлось
// ни одного другого продукта, запрос повторяется без порога.
func (c *CatalogUseCase) FindNearest(ctx context.Context, req *FindNearestReq) ([]ScoredProduct, error) {
	const op = "CatalogUseCase.FindNearest"

	if req.TopK <= 0 {
		return nil, e.Wrap(op, e.ErrInvalidTopK)
	}
	if req.MinSimilarity < 0 || req.MinSimilarity > 1 {
		return nil, e.Wrap(op, e.ErrInvalidMinSimilarity)
	}
	if err := domain.CheckDimension(req.Embedding, c.cfg.VectorSize); err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := domain.Normalize(req.Embedding)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	exclude := domain.NormalizeArticleNumber(req.ExcludeArticle)

	// Нулевой порог на шкале [0, 1] пропускает всё. Индексы сравнивают порог с сырым
	// косинусом, и записи с отрицательным косинусом отсеялись бы.
	var minSimilarity *float64
	if req.MinSimilarity > 0 {
		minSimilarity = &req.MinSimilarity
	}

	result, err := c.nearestValid(ctx, query, req.TopK, minSimilarity, exclude)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(result) == 0 && minSimilarity != nil {
		c.logger.Debugf("no products above similarity %.3f, falling back to unthresholded top-%d", req.MinSimilarity, req.TopK)
		result, err = c.nearestValid(ctx, query, req.TopK, nil, exclude)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	return result, nil
}

// ListAll возвращает валидные продукты, новые первыми.
func (c *CatalogUseCase) ListAll(ctx context.Context) ([]domain.Product, error) {
	const op = "CatalogUseCase.ListAll"

	products, err := c.productRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	valid, err := filterValid(ctx, c.imageRepo, products, c.cfg.MaxConcurrentChecks)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return valid, nil
}

// DeleteProduct удаляет изображение продукта, затем саму запись.
// Если удаление записи не удалось, она станет сиротой и будет убрана при очистке.
func (c *CatalogUseCase) DeleteProduct(ctx context.Context, id int64) error {
	const op = "CatalogUseCase.DeleteProduct"

	if id <= 0 {
		return e.Wrap(op, e.ErrInvalidID)
	}

	product, err := c.productRepo.GetByID(ctx, id)
	if err != nil {
		return e.Wrap(op, err)
	}

	if product.ImagePath != "" {
		if err := c.imageRepo.Delete(ctx, product.ImagePath); err != nil {
			return e.Wrap(op, err)
		}
	}

	if err := c.removeProduct(ctx, product, "deleted by user"); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// removeProduct удаляет запись и пишет outbox-событие в одной транзакции, затем убирает вектор
// из индекса и чистит кэш. Оставшийся в индексе вектор безвреден: поиск отбрасывает id без записи.
func (c *CatalogUseCase) removeProduct(ctx context.Context, product *domain.Product, reason string) error {
	err := c.txManager.Do(ctx, func(ctx context.Context) error {
		if err := c.productRepo.Delete(ctx, product.ID); err != nil {
			return err
		}

		return c.writeEvent(ctx, domain.ProductDeleted, product, reason)
	})
	if err != nil {
		return err
	}

	if err := c.vectorIndex.Remove(ctx, []int64{product.ID}); err != nil {
		c.logger.Warnf("Failed to remove vector of deleted product. id: %d, error: %v", product.ID, err)
	}

	if product.HasBarcode() {
		c.dropCachedBarcodes(ctx, []string{*product.Barcode})
	}

	return nil
}

// nearestValid запрашивает индекс страницами удваивающегося размера, пока не наберёт topK
// валидных продуктов или не исчерпает индекс. Исключаемый артикул занимает одно место,
// поэтому первая страница на единицу больше.
func (c *CatalogUseCase) nearestValid(ctx context.Context, query []float32, topK int, minSimilarity *float64, exclude string) ([]ScoredProduct, error) {
	limit := topK
	if exclude != "" {
		limit++
	}
	for {
		scored, err := c.vectorIndex.Nearest(ctx, query, limit, minSimilarity)
		if err != nil {
			return nil, err
		}

		result, err := c.loadScored(ctx, scored, exclude)
		if err != nil {
			return nil, err
		}

		if len(result) >= topK || len(scored) < limit {
			if len(result) > topK {
				result = result[:topK]
			}
			return result, nil
		}

		limit *= 2
	}
}

// loadScored загружает продукты по результатам индекса, сохраняя порядок и отбрасывая сирот
// и исключаемый артикул.
func (c *CatalogUseCase) loadScored(ctx context.Context, scored []ScoredID, exclude string) ([]ScoredProduct, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}

	products, err := c.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]domain.Product, 0, len(scored))
	similarities := make([]float64, 0, len(scored))
	for _, s := range scored {
		// Индекс может содержать векторы уже удалённых записей
		if p, ok := byID[s.ID]; ok && (exclude == "" || p.ArticleNumber != exclude) {
			ordered = append(ordered, p)
			similarities = append(similarities, domain.ClampSimilarity(s.Similarity))
		}
	}

	exists, err := checkImages(ctx, c.imageRepo, ordered, c.cfg.MaxConcurrentChecks)
	if err != nil {
		return nil, err
	}

	result := make([]ScoredProduct, 0, len(ordered))
	for i, p := range ordered {
		if exists[i] {
			result = append(result, ScoredProduct{Product: p, Similarity: similarities[i]})
		}
	}

	return result, nil
}

func (c *CatalogUseCase) isValid(ctx context.Context, product *domain.Product) (bool, error) {
	if product.ImagePath == "" {
		return false, nil
	}

	return c.imageRepo.Exists(ctx, product.ImagePath)
}

func (c *CatalogUseCase) writeEvent(ctx context.Context, eventType domain.CatalogEventType, product *domain.Product, reason string) error {
	event, err := NewOutboxEvent(eventType, product, reason, c.now())
	if err != nil {
		return err
	}

	_, err = c.outboxRepo.Create(ctx, event)
	return err
}

func (c *CatalogUseCase) dropCachedBarcodes(ctx context.Context, barcodes []string) {
	if err := c.cacheRepo.DeleteBarcodes(ctx, barcodes); err != nil {
		c.logger.Warnf("Failed to delete cached barcodes: %v", err)
	}
}

// validateSaveReq нормализует и проверяет поля запроса на сохранение.
func (c *CatalogUseCase) validateSaveReq(req *SaveProductReq) (string, string, *string, error) {
	articleNumber := domain.NormalizeArticleNumber(req.ArticleNumber)
	name := strings.TrimSpace(req.ProductName)

	if err := domain.ValidateArticleNumber(articleNumber); err != nil {
		return "", "", nil, err
	}

	if name == "" {
		return "", "", nil, e.ErrProductNameRequired
	}

	if req.Image == nil || len(req.Image.Data) == 0 {
		return "", "", nil, e.ErrNoImage
	}

	return articleNumber, name, domain.NormalizeBarcode(req.Barcode), nil
}
