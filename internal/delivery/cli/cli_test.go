package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeCatalog struct {
	usecase.CatalogUC
	saved []*usecase.SaveProductReq
}

func (f *fakeCatalog) SaveProduct(_ context.Context, req *usecase.SaveProductReq) (*domain.Product, error) {
	if req.ArticleNumber == "DUPLICATE-1" {
		return nil, e.Wrap("fake", e.ErrDuplicateArticle)
	}
	f.saved = append(f.saved, req)
	return &domain.Product{ID: int64(len(f.saved)), ArticleNumber: req.ArticleNumber}, nil
}

func (f *fakeCatalog) GetByArticleNumber(_ context.Context, article string) (*domain.Product, error) {
	if article != "FR-APPLE-001" {
		return nil, e.Wrap("fake", e.ErrNotFound)
	}
	return &domain.Product{ID: 3, ArticleNumber: article, Name: "Apple", ImagePath: "FR-APPLE-001/a.png"}, nil
}

type fakeMaintenance struct{}

func (fakeMaintenance) ComputeStats(context.Context) (*usecase.CatalogStats, error) {
	return &usecase.CatalogStats{Valid: 10, WithBarcode: 4, Orphans: 2, Total: 12, ComputedAt: time.Unix(0, 0).UTC()}, nil
}

func (fakeMaintenance) SweepOrphans(context.Context) (*usecase.SweepRes, error) {
	return &usecase.SweepRes{Removed: 2}, nil
}

func (fakeMaintenance) BackfillNormalization(context.Context) (*usecase.BackfillRes, error) {
	return &usecase.BackfillRes{Scanned: 3, Updated: 1}, nil
}

type fakeBackend struct {
	catalog *fakeCatalog
	closed  bool
}

func (b *fakeBackend) Catalog() usecase.CatalogUC         { return b.catalog }
func (b *fakeBackend) Maintenance() usecase.MaintenanceUC { return fakeMaintenance{} }
func (b *fakeBackend) Close(context.Context) error {
	b.closed = true
	return nil
}

func run(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd(func(context.Context) (Backend, error) { return b, nil })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMaintenanceCommands(t *testing.T) {
	tests := []struct {
		args []string
		want map[string]any
	}{
		{[]string{"stats"}, map[string]any{"valid": 10.0, "orphans": 2.0, "total": 12.0}},
		{[]string{"sweep"}, map[string]any{"removed": 2.0, "failed": 0.0}},
		{[]string{"backfill"}, map[string]any{"scanned": 3.0, "updated": 1.0}},
		{[]string{"get", "FR-APPLE-001"}, map[string]any{"id": 3.0, "product_name": "Apple"}},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			b := &fakeBackend{catalog: &fakeCatalog{}}
			out, err := run(t, b, tt.args...)
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}

			var got map[string]any
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("output is not JSON: %q", out)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
			if !b.closed {
				t.Error("backend was not closed")
			}
		})
	}
}

func TestGetMissingProduct(t *testing.T) {
	_, err := run(t, &fakeBackend{catalog: &fakeCatalog{}}, "get", "MISSING-1")
	if !errors.Is(err, e.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReadManifest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rows, err := ReadManifest(strings.NewReader(
			"article_number,product_name,filename,barcode\n" +
				"FR-APPLE-001,Apple,apple.png,4006381333931\n" +
				"FR-PEAR-002,\"Pear, green\",pear.png,\n" +
				"FR-PLUM-003,Plum,plum.png\n"))
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want 3", len(rows))
		}
		if rows[0].Barcode == nil || *rows[0].Barcode != "4006381333931" {
			t.Errorf("row 0 barcode = %v", rows[0].Barcode)
		}
		if rows[1].ProductName != "Pear, green" || rows[1].Barcode != nil {
			t.Errorf("row 1 = %+v", rows[1])
		}
		if rows[2].Line != 4 {
			t.Errorf("row 2 line = %d, want 4", rows[2].Line)
		}
	})

	t.Run("wrong header", func(t *testing.T) {
		if _, err := ReadManifest(strings.NewReader("sku,name,file\n")); err == nil {
			t.Error("expected header error")
		}
	})

	t.Run("short row", func(t *testing.T) {
		if _, err := ReadManifest(strings.NewReader("article_number,product_name,filename\nABC123,x\n")); err == nil {
			t.Error("expected column count error")
		}
	})
}

func TestImportRows(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "apple.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows := []ImportRow{
		{Line: 2, ArticleNumber: "FR-APPLE-001", ProductName: "Apple", Filename: "apple.png"},
		{Line: 3, ArticleNumber: "FR-NOTE-002", ProductName: "Note", Filename: "notes.txt"},
		{Line: 4, ArticleNumber: "FR-GONE-003", ProductName: "Gone", Filename: "missing.png"},
		{Line: 5, ArticleNumber: "DUPLICATE-1", ProductName: "Dup", Filename: "apple.png"},
		{Line: 6, ArticleNumber: "FR-BIG-004", ProductName: "Big", Filename: "apple.png"},
	}

	catalog := &fakeCatalog{}
	report := ImportRows(context.Background(), catalog, dir, int64(len(pngHeader)), rows[:4])
	if report.Imported != 1 {
		t.Errorf("imported = %d, want 1", report.Imported)
	}
	if len(report.Failed) != 3 {
		t.Fatalf("failed = %+v, want 3 entries", report.Failed)
	}
	if catalog.saved[0].Image.MimeType != "image/png" {
		t.Errorf("mime = %q", catalog.saved[0].Image.MimeType)
	}

	tooLarge := ImportRows(context.Background(), catalog, dir, int64(len(pngHeader))-1, rows[4:])
	if len(tooLarge.Failed) != 1 || tooLarge.Failed[0].Line != 6 {
		t.Errorf("failed = %+v, want line 6", tooLarge.Failed)
	}
}

func TestImportCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "apple.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "manifest.csv")
	content := "article_number,product_name,filename\nFR-APPLE-001,Apple,apple.png\nDUPLICATE-1,Dup,apple.png\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &fakeBackend{catalog: &fakeCatalog{}}
	out, err := run(t, b, "import", "--dir", dir, "--manifest", manifest)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 rows failed") {
		t.Fatalf("err = %v", err)
	}

	var report ImportReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %q", out)
	}
	if report.Imported != 1 || len(report.Failed) != 1 || report.Failed[0].ArticleNumber != "DUPLICATE-1" {
		t.Errorf("report = %+v", report)
	}
}
