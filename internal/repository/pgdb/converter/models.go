package converter

import (
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"
)

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID            int64           `db:"id"`
	ArticleNumber string          `db:"article_number"`
	ProductName   string          `db:"product_name"`
	ImagePath     sql.NullString  `db:"image_path"`
	Barcode       sql.NullString  `db:"barcode"`
	Embedding     pgvector.Vector `db:"embedding"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID            int64      `db:"id"`
	EventID       string     `db:"event_id"`
	EventType     string     `db:"event_type"`
	ArticleNumber string     `db:"article_number"`
	Payload       []byte     `db:"payload"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	ProcessedAt   *time.Time `db:"processed_at"`
}
