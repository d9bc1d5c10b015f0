package converter

import (
	"database/sql"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/pgvector/pgvector-go"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ProductConverterImpl struct{}

func NewProductConverter() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (c *ProductConverterImpl) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}

	return &ProductModel{
		ID:            entity.ID,
		ArticleNumber: entity.ArticleNumber,
		ProductName:   entity.Name,
		ImagePath:     nullString(&entity.ImagePath),
		Barcode:       nullString(entity.Barcode),
		Embedding:     pgvector.NewVector(entity.Embedding),
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}

func (c *ProductConverterImpl) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}

	product := &domain.Product{
		ID:            model.ID,
		ArticleNumber: model.ArticleNumber,
		Name:          model.ProductName,
		ImagePath:     model.ImagePath.String,
		Embedding:     model.Embedding.Slice(),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if model.Barcode.Valid {
		barcode := model.Barcode.String
		product.Barcode = &barcode
	}

	return product
}

type OutboxEventConverterImpl struct{}

func NewOutboxEventConverter() *OutboxEventConverterImpl {
	return &OutboxEventConverterImpl{}
}

func (c *OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}

	return &OutboxEventModel{
		ID:            entity.ID,
		EventID:       entity.EventID,
		EventType:     string(entity.EventType),
		ArticleNumber: entity.ArticleNumber,
		Payload:       entity.Payload,
		Status:        string(entity.Status),
		CreatedAt:     entity.CreatedAt,
		ProcessedAt:   entity.ProcessedAt,
	}
}

func (c *OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}

	return &usecase.OutboxEvent{
		ID:            model.ID,
		EventID:       model.EventID,
		EventType:     usecase.OutboxEventType(model.EventType),
		ArticleNumber: model.ArticleNumber,
		Payload:       model.Payload,
		Status:        usecase.OutboxStatus(model.Status),
		CreatedAt:     model.CreatedAt,
		ProcessedAt:   model.ProcessedAt,
	}
}

func (c *OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	if models == nil {
		return nil
	}

	res := make([]*usecase.OutboxEvent, len(models))
	for i, m := range models {
		res[i] = c.ToEntity(m)
	}

	return res
}

// nullString превращает пустую строку в NULL.
func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}
