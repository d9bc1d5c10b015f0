package usecase

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/google/uuid"
)

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed"
)

type OutboxEventType string

const (
	ProductCreatedEvent OutboxEventType = OutboxEventType(domain.ProductCreated)
	ProductDeletedEvent OutboxEventType = OutboxEventType(domain.ProductDeleted)
)

// OutboxEvent — событие каталога, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID            int64
	EventID       string
	EventType     OutboxEventType
	ArticleNumber string
	Payload       []byte
	Status        OutboxStatus
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// NewOutboxEvent сериализует событие каталога в JSON и подготавливает запись outbox.
func NewOutboxEvent(eventType domain.CatalogEventType, product *domain.Product, reason string, now time.Time) (*OutboxEvent, error) {
	event := domain.CatalogEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		ProductID:     product.ID,
		ArticleNumber: product.ArticleNumber,
		ImagePath:     product.ImagePath,
		Reason:        reason,
		OccurredAt:    now.UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:       event.EventID,
		EventType:     OutboxEventType(eventType),
		ArticleNumber: product.ArticleNumber,
		Payload:       payload,
		Status:        Pending,
		CreatedAt:     now.UTC(),
	}, nil
}
