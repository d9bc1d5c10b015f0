package converter

import "time"

// ProductRedisModel — JSON-представление продукта в кэше по штрихкоду.
type ProductRedisModel struct {
	ID            int64     `json:"id"`
	ArticleNumber string    `json:"article_number"`
	Name          string    `json:"name"`
	ImagePath     string    `json:"image_path"`
	Barcode       string    `json:"barcode"`
	Embedding     []float32 `json:"embedding"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
