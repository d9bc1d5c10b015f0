package converter

import "github.com/DRSN-tech/product-matcher/internal/domain"

type ProductConverter interface {
	ToRedisModel(entity *domain.Product) *ProductRedisModel
	ToEntity(model *ProductRedisModel) *domain.Product
}

type ProductConverterImpl struct{}

func NewProductConverter() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (c *ProductConverterImpl) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	if entity == nil {
		return nil
	}

	model := &ProductRedisModel{
		ID:            entity.ID,
		ArticleNumber: entity.ArticleNumber,
		Name:          entity.Name,
		ImagePath:     entity.ImagePath,
		Embedding:     entity.Embedding,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
	if entity.Barcode != nil {
		model.Barcode = *entity.Barcode
	}

	return model
}

func (c *ProductConverterImpl) ToEntity(model *ProductRedisModel) *domain.Product {
	if model == nil {
		return nil
	}

	product := &domain.Product{
		ID:            model.ID,
		ArticleNumber: model.ArticleNumber,
		Name:          model.Name,
		ImagePath:     model.ImagePath,
		Embedding:     model.Embedding,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if model.Barcode != "" {
		barcode := model.Barcode
		product.Barcode = &barcode
	}

	return product
}
