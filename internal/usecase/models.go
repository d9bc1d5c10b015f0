package usecase

import (
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
)

// CATALOG USECASE

// SaveProductReq — запрос на сохранение нового продукта.
type SaveProductReq struct {
	ArticleNumber string
	ProductName   string
	Barcode       *string
	Image         *ProductImage
}

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type (image/jpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// FindNearestReq — запрос ближайших соседей по эмбеддингу.
type FindNearestReq struct {
	Embedding      []float32 // должен быть нормализован
	TopK           int
	MinSimilarity  float64
	ExcludeArticle string // исключается до проверки на пустой результат
}

// ScoredProduct — продукт вместе со сходством с запросом.
type ScoredProduct struct {
	Product    domain.Product
	Similarity float64
}

// ScoredID — результат векторного индекса.
type ScoredID struct {
	ID         int64
	Similarity float64
}

// MATCHER USECASE

// MatchReq — запрос сопоставления. Если задан Barcode, выполняется проверка по штрихкоду,
// иначе открытый поиск похожих. Embedding используется, если Image не передан.
type MatchReq struct {
	Image          *ProductImage
	Embedding      []float32
	Barcode        *string
	TopK           int
	MinSimilarity  float64
	ExcludeArticle string
}

// MatchRes — результат сопоставления; заполнено ровно одно из полей.
type MatchRes struct {
	Verification *Verification
	Matches      []Match
}

// Verification — результат проверки загруженного изображения по штрихкоду.
type Verification struct {
	Product    domain.Product
	Similarity float64
	Confidence domain.Confidence
}

// Match — один кандидат открытого поиска.
type Match struct {
	Product    domain.Product
	Similarity float64
	Confidence domain.Confidence
}

// SuggestionRes — ответ сервиса подсказок; при сбое Text пуст, а Warning содержит причину.
type SuggestionRes struct {
	Text    string
	Warning string
}

// MAINTENANCE USECASE

// CatalogStats — статистика каталога.
type CatalogStats struct {
	Valid          int
	WithBarcode    int
	CreatedLast24h int
	Orphans        int
	Total          int
	ComputedAt     time.Time
}

// SweepRes — результат удаления записей без изображений.
type SweepRes struct {
	Removed int
	Failed  int
}

// BackfillRes — результат перенормализации исторических эмбеддингов.
type BackfillRes struct {
	Scanned    int
	Updated    int
	Degenerate []string // артикулы с нулевыми векторами
}

// INFRASTRUCTURE

// VectorizeReq — запрос на векторизацию изображения.
type VectorizeReq struct {
	Image ProductImage
}

// VectorizeRes — результат векторизации одного изображения.
type VectorizeRes struct {
	Vector       []float32
	ModelVersion string
}

// UploadImageReq — запрос на загрузку изображения продукта.
type UploadImageReq struct {
	ArticleNumber string
	Image         ProductImage
}

// UploadImageRes — результат загрузки изображения (ключ в хранилище).
type UploadImageRes struct {
	ImageKey string
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// MAPPERS

func NewSaveProductReq(articleNumber string, productName string, barcode *string, image *ProductImage) *SaveProductReq {
	return &SaveProductReq{
		ArticleNumber: articleNumber,
		ProductName:   productName,
		Barcode:       barcode,
		Image:         image,
	}
}

func NewProductImage(data []byte, mimeType string, size int64, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewFindNearestReq(embedding []float32, topK int, minSimilarity float64) *FindNearestReq {
	return &FindNearestReq{
		Embedding:     embedding,
		TopK:          topK,
		MinSimilarity: minSimilarity,
	}
}

func NewScoredID(id int64, similarity float64) ScoredID {
	return ScoredID{ID: id, Similarity: similarity}
}

func NewMatch(product domain.Product, similarity float64) Match {
	return Match{
		Product:    product,
		Similarity: similarity,
		Confidence: domain.ConfidenceFor(similarity),
	}
}

func NewVerification(product domain.Product, similarity float64) *Verification {
	return &Verification{
		Product:    product,
		Similarity: similarity,
		Confidence: domain.ConfidenceFor(similarity),
	}
}

func NewVectorizeReq(image ProductImage) *VectorizeReq {
	return &VectorizeReq{Image: image}
}

func NewVectorizeRes(vector []float32, modelVersion string) *VectorizeRes {
	return &VectorizeRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewUploadImageReq(articleNumber string, image ProductImage) *UploadImageReq {
	return &UploadImageReq{
		ArticleNumber: articleNumber,
		Image:         image,
	}
}

func NewUploadImageRes(key string) *UploadImageRes {
	return &UploadImageRes{ImageKey: key}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}
