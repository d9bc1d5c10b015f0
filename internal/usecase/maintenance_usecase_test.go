package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/pkg/e"
)

func TestComputeStatsEmptyCatalog(t *testing.T) {
	env := newTestEnv()

	stats, err := env.maintenance.ComputeStats(context.Background())
	if err != nil {
		t.Fatalf("ComputeStats() error = %v", err)
	}

	if stats.Valid != 0 || stats.WithBarcode != 0 || stats.CreatedLast24h != 0 || stats.Orphans != 0 || stats.Total != 0 {
		t.Errorf("got %+v, want all zero", stats)
	}
}

func TestComputeStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Старая запись со штрихкодом, создана двое суток назад
	_, _ = env.images.Upload(ctx, domain.NewImage("old.jpg", "old.jpg", []byte("x"), 1, "image/jpeg"))
	env.products.put(domain.Product{
		ArticleNumber: "OLD-001",
		Name:          "Old",
		ImagePath:     "old.jpg",
		Barcode:       strPtr("111"),
		Embedding:     []float32{1, 0, 0, 0},
		CreatedAt:     env.clock.Add(-48 * time.Hour),
	})

	if _, err := env.catalog.SaveProduct(ctx, NewSaveProductReq("NEW-001", "New", strPtr("222"), env.image("new", 0, 1, 0, 0))); err != nil {
		t.Fatal(err)
	}
	env.save("NEW-002", 0, 0, 1, 0)
	orphan := env.save("GONE-01", 0, 0, 0, 1)
	_ = env.images.Delete(ctx, orphan.ImagePath)

	// Запись без image_path тоже считается сиротой
	env.products.put(domain.Product{ArticleNumber: "NOIMG-1", Name: "No image", Embedding: []float32{1, 1, 0, 0}})

	stats, err := env.maintenance.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStats() error = %v", err)
	}

	want := CatalogStats{Valid: 3, WithBarcode: 2, CreatedLast24h: 2, Orphans: 2, Total: 5}
	if stats.Valid != want.Valid || stats.WithBarcode != want.WithBarcode ||
		stats.CreatedLast24h != want.CreatedLast24h || stats.Orphans != want.Orphans || stats.Total != want.Total {
		t.Errorf("got %+v, want %+v", stats, want)
	}
	if !stats.ComputedAt.Equal(env.clock) {
		t.Errorf("computed_at = %v, want %v", stats.ComputedAt, env.clock)
	}
}

func TestSweepOrphansIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.save("KEEP-01", 1, 0, 0, 0)
	gone1 := env.save("GONE-01", 0, 1, 0, 0)
	gone2 := env.save("GONE-02", 0, 0, 1, 0)
	env.products.put(domain.Product{ArticleNumber: "NOIMG-1", Name: "No image", Embedding: []float32{1, 1, 0, 0}})

	_ = env.images.Delete(ctx, gone1.ImagePath)
	_ = env.images.Delete(ctx, gone2.ImagePath)

	first, err := env.maintenance.SweepOrphans(ctx)
	if err != nil {
		t.Fatalf("SweepOrphans() error = %v", err)
	}
	if first.Removed != 2 || first.Failed != 0 {
		t.Errorf("first sweep = %+v, want 2 removed", first)
	}

	second, err := env.maintenance.SweepOrphans(ctx)
	if err != nil {
		t.Fatalf("SweepOrphans() error = %v", err)
	}
	if second.Removed != 0 {
		t.Errorf("second sweep removed %d, want 0", second.Removed)
	}

	// Остаются валидная запись и запись без image_path
	if env.products.count() != 2 {
		t.Errorf("records = %d, want 2", env.products.count())
	}
	if env.index.size() != 1 {
		t.Errorf("index size = %d, want 1", env.index.size())
	}
}

func TestSweepOrphansContinuesAfterFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	gone1 := env.save("GONE-01", 0, 1, 0, 0)
	gone2 := env.save("GONE-02", 0, 0, 1, 0)
	_ = env.images.Delete(ctx, gone1.ImagePath)
	_ = env.images.Delete(ctx, gone2.ImagePath)
	env.products.deleteErr[gone1.ID] = errors.New("constraint")

	res, err := env.maintenance.SweepOrphans(ctx)
	if err != nil {
		t.Fatalf("SweepOrphans() error = %v", err)
	}
	if res.Removed != 1 || res.Failed != 1 {
		t.Errorf("got %+v, want 1 removed 1 failed", res)
	}
}

func TestSweepOrphansStopsWhenStoreUnavailable(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	gone := env.save("GONE-01", 0, 1, 0, 0)
	_ = env.images.Delete(ctx, gone.ImagePath)
	env.products.deleteErr[gone.ID] = e.Wrap("delete", e.ErrStoreUnavailable)

	if _, err := env.maintenance.SweepOrphans(ctx); !errors.Is(err, e.ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
}

func TestBackfillNormalization(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.save("NORM-01", 1, 0, 0, 0)
	legacy := env.products.put(domain.Product{ArticleNumber: "LEGACY-1", Name: "Legacy", ImagePath: "l.jpg", Embedding: []float32{3, 4, 0, 0}})
	env.products.put(domain.Product{ArticleNumber: "ZERO-01", Name: "Zero", ImagePath: "z.jpg", Embedding: []float32{0, 0, 0, 0}})

	res, err := env.maintenance.BackfillNormalization(ctx)
	if err != nil {
		t.Fatalf("BackfillNormalization() error = %v", err)
	}

	if res.Scanned != 3 || res.Updated != 1 {
		t.Errorf("got %+v, want scanned 3 updated 1", res)
	}
	if len(res.Degenerate) != 1 || res.Degenerate[0] != "ZERO-01" {
		t.Errorf("degenerate = %v, want [ZERO-01]", res.Degenerate)
	}

	p, _ := env.products.GetByID(ctx, legacy.ID)
	if math.Abs(float64(p.Embedding[0])-0.6) > eps || math.Abs(float64(p.Embedding[1])-0.8) > eps {
		t.Errorf("embedding = %v, want [0.6 0.8 0 0]", p.Embedding)
	}
	if _, ok := env.index.vectors[legacy.ID]; !ok {
		t.Error("backfilled vector not indexed")
	}

	again, err := env.maintenance.BackfillNormalization(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Updated != 0 {
		t.Errorf("second run updated %d, want 0", again.Updated)
	}
}

func TestBackfillNormalizationDimensionMismatch(t *testing.T) {
	env := newTestEnv()
	env.products.put(domain.Product{ArticleNumber: "SHORT-1", Name: "Short", ImagePath: "s.jpg", Embedding: []float32{1, 0}})

	if _, err := env.maintenance.BackfillNormalization(context.Background()); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
}
