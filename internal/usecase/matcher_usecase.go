package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

// MatcherUseCase сопоставляет загруженное изображение с каталогом.
type MatcherUseCase struct {
	catalog    CatalogUC
	suggestion SuggestionInfra
	logger     logger.Logger
	cfg        *cfg.CatalogCfg
}

func NewMatcherUC(catalog CatalogUC, suggestion SuggestionInfra, logger logger.Logger, cfg *cfg.CatalogCfg) *MatcherUseCase {
	return &MatcherUseCase{
		catalog:    catalog,
		suggestion: suggestion,
		logger:     logger,
		cfg:        cfg,
	}
}

// Match выполняет проверку по штрихкоду, если он задан, иначе открытый поиск похожих.
func (m *MatcherUseCase) Match(ctx context.Context, req *MatchReq) (*MatchRes, error) {
	const op = "MatcherUseCase.Match"

	query, err := m.queryEmbedding(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Barcode != nil && strings.TrimSpace(*req.Barcode) != "" {
		verification, err := m.verify(ctx, query, *req.Barcode)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		return &MatchRes{Verification: verification}, nil
	}

	topK := req.TopK
	if topK == 0 {
		topK = m.cfg.DefaultTopK
	}

	matches, err := m.search(ctx, query, topK, req.MinSimilarity, req.ExcludeArticle)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &MatchRes{Matches: matches}, nil
}

// FindSimilarToProduct ищет продукты, похожие на продукт каталога, исключая его самого.
func (m *MatcherUseCase) FindSimilarToProduct(ctx context.Context, articleNumber string, topK int) ([]Match, error) {
	const op = "MatcherUseCase.FindSimilarToProduct"

	reference, err := m.catalog.GetByArticleNumber(ctx, articleNumber)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if topK == 0 {
		topK = m.cfg.DefaultTopK
	}

	matches, err := m.search(ctx, reference.Embedding, topK, 0, reference.ArticleNumber)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return matches, nil
}

// SuggestMetadata запрашивает подсказку по описанию. Сбой провайдера не считается ошибкой.
func (m *MatcherUseCase) SuggestMetadata(ctx context.Context, description string) (*SuggestionRes, error) {
	const op = "MatcherUseCase.SuggestMetadata"

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, e.Wrap(op, e.ErrDescriptionRequired)
	}

	text, err := m.suggestion.Suggest(ctx, description)
	if err != nil {
		m.logger.Warnf("Suggestion provider failed: %v", e.Wrap(op, err))
		return &SuggestionRes{Warning: "suggestion service is unavailable: " + err.Error()}, nil
	}

	return &SuggestionRes{Text: text}, nil
}

// verify сравнивает эмбеддинг запроса с эмбеддингом продукта, найденного по штрихкоду.
func (m *MatcherUseCase) verify(ctx context.Context, query []float32, barcode string) (*Verification, error) {
	product, err := m.catalog.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	// Полная формула косинуса подходит и для записей, сохранённых без нормализации
	similarity, err := domain.CosineSimilarity(query, product.Embedding)
	if err != nil {
		return nil, err
	}

	return NewVerification(*product, domain.ClampSimilarity(similarity)), nil
}

// search исключает эталонный артикул на стороне каталога, до решения о повторе без порога.
func (m *MatcherUseCase) search(ctx context.Context, query []float32, topK int, minSimilarity float64, excludeArticle string) ([]Match, error) {
	if topK <= 0 {
		return nil, e.ErrInvalidTopK
	}

	req := NewFindNearestReq(query, topK, minSimilarity)
	req.ExcludeArticle = excludeArticle

	scored, err := m.catalog.FindNearest(ctx, req)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		matches = append(matches, NewMatch(s.Product, s.Similarity))
	}

	return matches, nil
}

// queryEmbedding возвращает нормализованный эмбеддинг запроса: из изображения или переданный явно.
func (m *MatcherUseCase) queryEmbedding(ctx context.Context, req *MatchReq) ([]float32, error) {
	if req.Image != nil {
		return m.catalog.EmbedImage(ctx, req.Image)
	}

	if len(req.Embedding) == 0 {
		return nil, e.ErrNoImage
	}

	if err := domain.CheckDimension(req.Embedding, m.cfg.VectorSize); err != nil {
		return nil, err
	}

	return domain.Normalize(req.Embedding)
}
