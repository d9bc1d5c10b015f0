package http

import (
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/shopspring/decimal"
)

const (
	matchModeBarcode = "barcode"
	matchModeSearch  = "search"
)

// ProductResponse — продукт каталога без эмбеддинга.
type ProductResponse struct {
	ID            int64     `json:"id"`
	ArticleNumber string    `json:"article_number"`
	ProductName   string    `json:"product_name"`
	ImagePath     string    `json:"image_path"`
	Barcode       *string   `json:"barcode,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MatchResponse — один кандидат сопоставления.
type MatchResponse struct {
	Product           ProductResponse `json:"product"`
	Similarity        float64         `json:"similarity"`
	SimilarityPercent decimal.Decimal `json:"similarity_percent" swaggertype:"string"`
	Confidence        string          `json:"confidence"`
}

// MatchResultResponse — ответ сопоставления: verification для режима штрихкода, matches для поиска.
type MatchResultResponse struct {
	Mode         string          `json:"mode"`
	Verification *MatchResponse  `json:"verification,omitempty"`
	Matches      []MatchResponse `json:"matches"`
}

type SuggestionRequest struct {
	Description string `json:"description"`
}

type SuggestionResponse struct {
	Suggestion string `json:"suggestion"`
	Warning    string `json:"warning,omitempty"`
}

type StatsResponse struct {
	Valid          int       `json:"valid"`
	WithBarcode    int       `json:"with_barcode"`
	CreatedLast24h int       `json:"created_last_24h"`
	Orphans        int       `json:"orphans"`
	Total          int       `json:"total"`
	ComputedAt     time.Time `json:"computed_at"`
}

type SweepResponse struct {
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

type BackfillResponse struct {
	Scanned    int      `json:"scanned"`
	Updated    int      `json:"updated"`
	Degenerate []string `json:"degenerate"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		ArticleNumber: p.ArticleNumber,
		ProductName:   p.Name,
		ImagePath:     p.ImagePath,
		Barcode:       p.Barcode,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toArrProductResponse(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, len(products))
	for i := range products {
		res[i] = toProductResponse(&products[i])
	}

	return res
}

func newMatchResponse(product *domain.Product, similarity float64, confidence domain.Confidence) MatchResponse {
	return MatchResponse{
		Product:           toProductResponse(product),
		Similarity:        similarity,
		SimilarityPercent: similarityPercent(similarity),
		Confidence:        string(confidence),
	}
}

func toArrMatchResponse(matches []usecase.Match) []MatchResponse {
	res := make([]MatchResponse, len(matches))
	for i := range matches {
		res[i] = newMatchResponse(&matches[i].Product, matches[i].Similarity, matches[i].Confidence)
	}

	return res
}

func toMatchResultResponse(res *usecase.MatchRes) *MatchResultResponse {
	if res.Verification != nil {
		v := newMatchResponse(&res.Verification.Product, res.Verification.Similarity, res.Verification.Confidence)
		return &MatchResultResponse{Mode: matchModeBarcode, Verification: &v}
	}

	return &MatchResultResponse{Mode: matchModeSearch, Matches: toArrMatchResponse(res.Matches)}
}

func toStatsResponse(s *usecase.CatalogStats) *StatsResponse {
	return &StatsResponse{
		Valid:          s.Valid,
		WithBarcode:    s.WithBarcode,
		CreatedLast24h: s.CreatedLast24h,
		Orphans:        s.Orphans,
		Total:          s.Total,
		ComputedAt:     s.ComputedAt,
	}
}

func toBackfillResponse(b *usecase.BackfillRes) *BackfillResponse {
	degenerate := b.Degenerate
	if degenerate == nil {
		degenerate = []string{}
	}

	return &BackfillResponse{
		Scanned:    b.Scanned,
		Updated:    b.Updated,
		Degenerate: degenerate,
	}
}
