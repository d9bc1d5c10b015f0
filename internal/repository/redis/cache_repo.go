package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/repository/redis/converter"
	"github.com/DRSN-tech/product-matcher/pkg/clients"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetByBarcode возвращает закэшированный продукт; промах — (nil, nil).
// Повреждённая запись удаляется и считается промахом.
func (c *CacheRepo) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	key := barcodeKey(barcode)

	data, err := c.client.Client.Get(ctx, key).Bytes()
	if errors.Is(err, r.Nil) {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.ProductRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.del(ctx, key)
		return nil, nil
	}

	if model.Barcode != barcode {
		c.logger.Warnf("Cache barcode mismatch: key: %s, model: %s", barcode, model.Barcode)
		c.del(ctx, key)
		return nil, nil
	}

	return c.conv.ToEntity(&model), nil
}

// SetByBarcode кэширует продукт с TTL из конфигурации. Продукт без штрихкода не кэшируется.
func (c *CacheRepo) SetByBarcode(ctx context.Context, product *domain.Product) error {
	if !product.HasBarcode() {
		return nil
	}

	data, err := json.Marshal(c.conv.ToRedisModel(product))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, barcodeKey(*product.Barcode), data, c.cfg.ProductTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// DeleteBarcodes удаляет записи кэша по штрихкодам.
func (c *CacheRepo) DeleteBarcodes(ctx context.Context, barcodes []string) error {
	if len(barcodes) == 0 {
		return nil
	}

	keys := make([]string, len(barcodes))
	for i, b := range barcodes {
		keys[i] = barcodeKey(b)
	}

	if err := c.client.Client.Del(ctx, keys...).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) del(ctx context.Context, key string) {
	if err := c.client.Client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// barcodeKey возвращает Redis-ключ для штрихкода
func barcodeKey(barcode string) string {
	return fmt.Sprintf("product:barcode:%s", barcode)
}
