package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/DRSN-tech/product-matcher/pkg/e"
)

var articleNumberPattern = regexp.MustCompile(`^[A-Z0-9-]{6,32}$`)

// Product описывает запись каталога
type Product struct {
	ID            int64
	ArticleNumber string
	Name          string
	ImagePath     string
	Barcode       *string
	Embedding     []float32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewProduct(articleNumber string, name string, imagePath string, barcode *string, embedding []float32) *Product {
	return &Product{
		ArticleNumber: articleNumber,
		Name:          name,
		ImagePath:     imagePath,
		Barcode:       barcode,
		Embedding:     embedding,
	}
}

// HasBarcode сообщает, задан ли у продукта непустой штрихкод.
func (p *Product) HasBarcode() bool {
	return p.Barcode != nil && strings.TrimSpace(*p.Barcode) != ""
}

// NormalizeArticleNumber приводит артикул к каноническому виду: без пробелов по краям, в верхнем регистре.
func NormalizeArticleNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateArticleNumber проверяет уже нормализованный артикул.
func ValidateArticleNumber(s string) error {
	if s == "" {
		return e.ErrArticleNumberRequired
	}

	if !articleNumberPattern.MatchString(s) {
		return e.ErrInvalidArticleNumber
	}

	return nil
}

// NormalizeBarcode убирает пробелы и превращает пустой штрихкод в nil.
func NormalizeBarcode(s *string) *string {
	if s == nil {
		return nil
	}

	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}

	return &v
}
