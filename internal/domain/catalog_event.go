package domain

import "time"

// CatalogEventType — тип изменения каталога
type CatalogEventType string

const (
	ProductCreated CatalogEventType = "product.created"
	ProductDeleted CatalogEventType = "product.deleted"
)

// CatalogEvent — сообщение об изменении каталога, публикуемое через outbox.
type CatalogEvent struct {
	EventID       string           `json:"event_id"`
	Type          CatalogEventType `json:"type"`
	ProductID     int64            `json:"product_id"`
	ArticleNumber string           `json:"article_number"`
	ImagePath     string           `json:"image_path"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
