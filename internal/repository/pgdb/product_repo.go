package pgdb

import (
	"context"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/pgvector/pgvector-go"
)

const productColumns = `id, article_number, product_name, image_path, barcode, embedding, created_at, updated_at`

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
// Если в контексте есть транзакция, запросы выполняются в ней.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) querier(ctx context.Context) Querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}

	return p.pool
}

// Create вставляет запись; created_at и updated_at выставляет база.
// Нарушение уникальности article_number возвращается как ErrDuplicateArticle.
func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		INSERT INTO products (article_number, product_name, image_path, barcode, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + productColumns

	row := p.querier(ctx).QueryRow(ctx, query,
		model.ArticleNumber,
		model.ProductName,
		model.ImagePath,
		model.Barcode,
		model.Embedding,
	)

	created, err := p.scan(row)
	if err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}

	return created, nil
}

func (p *ProductRepo) ExistsByArticleNumber(ctx context.Context, articleNumber string) (bool, error) {
	var exists bool
	err := p.querier(ctx).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE article_number = $1)`, articleNumber).
		Scan(&exists)
	if err != nil {
		return false, storeErr(whereami.WhereAmI(), err)
	}

	return exists, nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := p.querier(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := p.scan(row)
	if err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}

	return product, nil
}

// GetByIDs возвращает найденные записи в произвольном порядке; отсутствующие id пропускаются.
func (p *ProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return p.list(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
}

func (p *ProductRepo) GetByArticleNumber(ctx context.Context, articleNumber string) (*domain.Product, error) {
	row := p.querier(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE article_number = $1`, articleNumber)

	product, err := p.scan(row)
	if err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}

	return product, nil
}

// GetByBarcode возвращает записи со штрихкодом, новые первыми.
// Уникальность штрихкода не гарантируется, выбор одной записи делает вызывающий.
func (p *ProductRepo) GetByBarcode(ctx context.Context, barcode string) ([]domain.Product, error) {
	return p.list(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1
		ORDER BY created_at DESC, id DESC`, barcode)
}

func (p *ProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	return p.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
}

func (p *ProductRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := p.querier(ctx).Exec(ctx,
		`UPDATE products SET embedding = $1, updated_at = NOW() WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return storeErr(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return nil
}

func (p *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := p.querier(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return storeErr(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return nil
}

func (p *ProductRepo) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := p.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		product, err := p.scan(rows)
		if err != nil {
			return nil, storeErr(whereami.WhereAmI(), err)
		}

		result = append(result, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr(whereami.WhereAmI(), err)
	}

	return result, nil
}

func (p *ProductRepo) scan(row pgx.Row) (*domain.Product, error) {
	var model converter.ProductModel
	if err := row.Scan(
		&model.ID,
		&model.ArticleNumber,
		&model.ProductName,
		&model.ImagePath,
		&model.Barcode,
		&model.Embedding,
		&model.CreatedAt,
		&model.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return p.conv.ToEntity(&model), nil
}
