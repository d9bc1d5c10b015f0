package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/cfg"
	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
)

const testVectorSize = 4

// memProductRepo хранит записи в памяти и повторяет поведение уникального индекса по артикулу.
type memProductRepo struct {
	mu        sync.Mutex
	nextID    int64
	products  map[int64]domain.Product
	now       func() time.Time
	createErr error
	deleteErr map[int64]error
}

func newMemProductRepo(now func() time.Time) *memProductRepo {
	return &memProductRepo{
		products:  make(map[int64]domain.Product),
		now:       now,
		deleteErr: make(map[int64]error),
	}
}

func (r *memProductRepo) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}

	for _, p := range r.products {
		if p.ArticleNumber == product.ArticleNumber {
			return nil, e.ErrDuplicateArticle
		}
	}

	r.nextID++
	created := *product
	created.ID = r.nextID
	created.CreatedAt = r.now()
	created.UpdatedAt = created.CreatedAt
	created.Embedding = append([]float32(nil), product.Embedding...)
	r.products[created.ID] = created

	return &created, nil
}

// put добавляет запись в обход бизнес-логики, как если бы она была создана старой версией.
func (r *memProductRepo) put(product domain.Product) domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	product.ID = r.nextID
	if product.CreatedAt.IsZero() {
		product.CreatedAt = r.now()
	}
	product.UpdatedAt = product.CreatedAt
	r.products[product.ID] = product

	return product
}

func (r *memProductRepo) ExistsByArticleNumber(_ context.Context, articleNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.ArticleNumber == articleNumber {
			return true, nil
		}
	}

	return false, nil
}

func (r *memProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, e.ErrNotFound
	}

	return &p, nil
}

func (r *memProductRepo) GetByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []domain.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			res = append(res, p)
		}
	}

	return res, nil
}

func (r *memProductRepo) GetByArticleNumber(_ context.Context, articleNumber string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.ArticleNumber == articleNumber {
			return &p, nil
		}
	}

	return nil, e.ErrNotFound
}

func (r *memProductRepo) GetByBarcode(ctx context.Context, barcode string) ([]domain.Product, error) {
	all, _ := r.ListAll(ctx)

	var res []domain.Product
	for _, p := range all {
		if p.Barcode != nil && *p.Barcode == barcode {
			res = append(res, p)
		}
	}

	return res, nil
}

func (r *memProductRepo) ListAll(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		res = append(res, p)
	}

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})

	return res, nil
}

func (r *memProductRepo) UpdateEmbedding(_ context.Context, id int64, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return e.ErrNotFound
	}

	p.Embedding = append([]float32(nil), embedding...)
	p.UpdatedAt = r.now()
	r.products[id] = p

	return nil
}

func (r *memProductRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.deleteErr[id]; err != nil {
		return err
	}

	if _, ok := r.products[id]; !ok {
		return e.ErrNotFound
	}

	delete(r.products, id)
	return nil
}

func (r *memProductRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.products)
}

// memVectorIndex выполняет точный перебор по косинусному сходству.
type memVectorIndex struct {
	mu       sync.Mutex
	vectors  map[int64][]float32
	queries  int
	indexErr error
}

func newMemVectorIndex() *memVectorIndex {
	return &memVectorIndex{vectors: make(map[int64][]float32)}
}

func (i *memVectorIndex) Index(_ context.Context, product *domain.Product) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.indexErr != nil {
		return i.indexErr
	}

	i.vectors[product.ID] = append([]float32(nil), product.Embedding...)
	return nil
}

// Nearest сравнивает порог с сырым косинусом и ограничивает сходство только в ответе,
// как это делают pgvector и Qdrant.
func (i *memVectorIndex) Nearest(_ context.Context, query []float32, limit int, minSimilarity *float64) ([]ScoredID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.queries++

	type hit struct {
		id     int64
		cosine float64
	}

	var hits []hit
	for id, v := range i.vectors {
		cosine, err := domain.CosineSimilarity(query, v)
		if err != nil {
			return nil, err
		}

		if minSimilarity != nil && cosine < *minSimilarity {
			continue
		}
		hits = append(hits, hit{id: id, cosine: cosine})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].cosine != hits[b].cosine {
			return hits[a].cosine > hits[b].cosine
		}
		return hits[a].id < hits[b].id
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	res := make([]ScoredID, 0, len(hits))
	for _, h := range hits {
		res = append(res, NewScoredID(h.id, domain.ClampSimilarity(h.cosine)))
	}

	return res, nil
}

func (i *memVectorIndex) Remove(_ context.Context, ids []int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, id := range ids {
		delete(i.vectors, id)
	}

	return nil
}

func (i *memVectorIndex) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.vectors)
}

type memImageRepo struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemImageRepo() *memImageRepo {
	return &memImageRepo{objects: make(map[string][]byte)}
}

func (r *memImageRepo) Upload(_ context.Context, image *domain.Image) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.objects[image.ObjectKey] = image.Bytes
	return image.ObjectKey, nil
}

func (r *memImageRepo) Exists(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.objects[key]
	return ok, nil
}

func (r *memImageRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.objects, key)
	return nil
}

func (r *memImageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.objects)
}

// memImagesInfra загружает изображения в memImageRepo с предсказуемыми ключами.
type memImagesInfra struct {
	repo     *memImageRepo
	uploads  int
	cleanups []string
}

func (i *memImagesInfra) UploadImage(ctx context.Context, req *UploadImageReq) (*UploadImageRes, error) {
	i.uploads++
	key := fmt.Sprintf("%s-%d.jpg", req.ArticleNumber, i.uploads)

	if _, err := i.repo.Upload(ctx, domain.NewImage(key, key, req.Image.Data, req.Image.Size, req.Image.MimeType)); err != nil {
		return nil, err
	}

	return NewUploadImageRes(key), nil
}

func (i *memImagesInfra) CleanupImages(keys []string) {
	i.cleanups = append(i.cleanups, keys...)
	for _, k := range keys {
		_ = i.repo.Delete(context.Background(), k)
	}
}

// fakeMlService возвращает вектор, заранее привязанный к байтам изображения.
type fakeMlService struct {
	vectors map[string][]float32
	calls   int
	err     error
}

func (f *fakeMlService) VectorizeRequest(_ context.Context, req *VectorizeReq) (*VectorizeRes, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	v, ok := f.vectors[string(req.Image.Data)]
	if !ok {
		return nil, fmt.Errorf("no vector for image %q", req.Image.Data)
	}

	return NewVectorizeRes(append([]float32(nil), v...), "test"), nil
}

type memCacheRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	getErr   error
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{products: make(map[string]domain.Product)}
}

func (c *memCacheRepo) GetByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return nil, c.getErr
	}

	p, ok := c.products[barcode]
	if !ok {
		return nil, nil
	}

	return &p, nil
}

func (c *memCacheRepo) SetByBarcode(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[*product.Barcode] = *product
	return nil
}

func (c *memCacheRepo) DeleteBarcodes(_ context.Context, barcodes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range barcodes {
		delete(c.products, b)
	}

	return nil
}

type memOutboxRepo struct {
	mu     sync.Mutex
	events []*OutboxEvent
}

func (o *memOutboxRepo) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	event.ID = int64(len(o.events) + 1)
	o.events = append(o.events, event)
	return event, nil
}

func (o *memOutboxRepo) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var res []*OutboxEvent
	for _, ev := range o.events {
		if len(res) == limit {
			break
		}
		if ev.Status == Pending {
			ev.Status = Processing
			res = append(res, ev)
		}
	}

	return res, nil
}

func (o *memOutboxRepo) MarkAsProcessed(_ context.Context, id int64) error {
	return o.setStatus(id, Processed)
}

func (o *memOutboxRepo) MarkAsFailed(_ context.Context, id int64) error {
	return o.setStatus(id, Failed)
}

func (o *memOutboxRepo) setStatus(id int64, status OutboxStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, ev := range o.events {
		if ev.ID == id {
			ev.Status = status
			return nil
		}
	}

	return e.ErrNotFound
}

func (o *memOutboxRepo) types() []OutboxEventType {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := make([]OutboxEventType, len(o.events))
	for i, ev := range o.events {
		res[i] = ev.EventType
	}

	return res
}

// fakeTxManager выполняет fn без транзакции; откат не моделируется.
// commitErr возвращается после успешного fn, как ошибка COMMIT.
type fakeTxManager struct {
	calls     int
	commitErr error
}

func (f *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return f.commitErr
}

type fakeSuggestion struct {
	text string
	err  error
}

func (f *fakeSuggestion) Suggest(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

// testEnv собирает usecase-слой поверх in-memory зависимостей.
type testEnv struct {
	clock       time.Time
	products    *memProductRepo
	index       *memVectorIndex
	images      *memImageRepo
	imagesInfra *memImagesInfra
	ml          *fakeMlService
	cache       *memCacheRepo
	outbox      *memOutboxRepo
	tx          *fakeTxManager
	suggestion  *fakeSuggestion

	catalog     *CatalogUseCase
	matcher     *MatcherUseCase
	maintenance *MaintenanceUseCase
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		index:      newMemVectorIndex(),
		images:     newMemImageRepo(),
		ml:         &fakeMlService{vectors: make(map[string][]float32)},
		cache:      newMemCacheRepo(),
		outbox:     &memOutboxRepo{},
		tx:         &fakeTxManager{},
		suggestion: &fakeSuggestion{},
	}
	env.products = newMemProductRepo(env.now)
	env.imagesInfra = &memImagesInfra{repo: env.images}

	catalogCfg := &cfg.CatalogCfg{
		VectorIndex:         cfg.VectorIndexPgvector,
		VectorSize:          testVectorSize,
		DefaultTopK:         3,
		MaxConcurrentChecks: 4,
	}
	log := logger.NewNopLogger()

	env.catalog = NewCatalogUC(
		env.products,
		env.index,
		env.images,
		env.imagesInfra,
		env.ml,
		env.cache,
		env.outbox,
		env.tx,
		log,
		catalogCfg,
	)
	env.catalog.now = env.now

	env.matcher = NewMatcherUC(env.catalog, env.suggestion, log, catalogCfg)

	env.maintenance = NewMaintenanceUC(env.catalog, env.products, env.index, env.images, log, catalogCfg)
	env.maintenance.now = env.now

	return env
}

func (env *testEnv) now() time.Time {
	return env.clock
}

// image регистрирует байты изображения и вектор, который для них вернёт ML-сервис.
func (env *testEnv) image(name string, vector ...float32) *ProductImage {
	env.ml.vectors[name] = vector
	return NewProductImage([]byte(name), "image/jpeg", int64(len(name)), name+".jpg")
}

func (env *testEnv) save(article string, vector ...float32) *domain.Product {
	p, err := env.catalog.SaveProduct(context.Background(), NewSaveProductReq(article, "Product "+article, nil, env.image(article, vector...)))
	if err != nil {
		panic(fmt.Sprintf("save %s: %v", article, err))
	}

	return p
}

func strPtr(s string) *string {
	return &s
}
