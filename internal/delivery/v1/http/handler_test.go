package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/product-matcher/internal/domain"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/go-chi/chi/v5"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeCatalog struct {
	saved     *usecase.SaveProductReq
	saveErr   error
	products  map[string]*domain.Product
	deletedID int64
}

func (f *fakeCatalog) SaveProduct(_ context.Context, req *usecase.SaveProductReq) (*domain.Product, error) {
	f.saved = req
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &domain.Product{ID: 1, ArticleNumber: strings.ToUpper(req.ArticleNumber), Name: req.ProductName, ImagePath: "a/b.png"}, nil
}

func (f *fakeCatalog) EmbedImage(context.Context, *usecase.ProductImage) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeCatalog) GetByArticleNumber(_ context.Context, article string) (*domain.Product, error) {
	if p, ok := f.products[article]; ok {
		return p, nil
	}
	return nil, e.Wrap("fake", e.ErrNotFound)
}

func (f *fakeCatalog) FindByBarcode(context.Context, string) (*domain.Product, error) {
	return nil, e.ErrNotFound
}

func (f *fakeCatalog) FindNearest(context.Context, *usecase.FindNearestReq) ([]usecase.ScoredProduct, error) {
	return nil, nil
}

func (f *fakeCatalog) ListAll(context.Context) ([]domain.Product, error) {
	res := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		res = append(res, *p)
	}
	return res, nil
}

func (f *fakeCatalog) DeleteProduct(_ context.Context, id int64) error {
	f.deletedID = id
	return nil
}

type fakeMatcher struct {
	lastReq *usecase.MatchReq
	res     *usecase.MatchRes
	err     error
}

func (f *fakeMatcher) Match(_ context.Context, req *usecase.MatchReq) (*usecase.MatchRes, error) {
	f.lastReq = req
	return f.res, f.err
}

func (f *fakeMatcher) FindSimilarToProduct(_ context.Context, article string, topK int) ([]usecase.Match, error) {
	return []usecase.Match{usecase.NewMatch(domain.Product{ArticleNumber: "OTHER-1"}, 0.85)}, nil
}

func (f *fakeMatcher) SuggestMetadata(_ context.Context, description string) (*usecase.SuggestionRes, error) {
	if strings.TrimSpace(description) == "" {
		return nil, e.ErrDescriptionRequired
	}
	return &usecase.SuggestionRes{Warning: "suggestion service is unavailable"}, nil
}

type fakeMaintenance struct{}

func (fakeMaintenance) ComputeStats(context.Context) (*usecase.CatalogStats, error) {
	return &usecase.CatalogStats{}, nil
}

func (fakeMaintenance) SweepOrphans(context.Context) (*usecase.SweepRes, error) {
	return &usecase.SweepRes{Removed: 2}, nil
}

func (fakeMaintenance) BackfillNormalization(context.Context) (*usecase.BackfillRes, error) {
	return &usecase.BackfillRes{Scanned: 3}, nil
}

func newTestRouter(catalog *fakeCatalog, matcher *fakeMatcher) *chi.Mux {
	r := chi.NewRouter()
	NewRouter(r, logger.NewNopLogger(), 1<<20).Init(catalog, matcher, fakeMaintenance{})
	return r
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "apple.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	return body, mw.FormDataContentType()
}

func TestToHTTPResponse(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{e.Wrap("op", e.ErrInvalidArticleNumber), http.StatusBadRequest},
		{e.Wrap("op", e.ErrNoImage), http.StatusBadRequest},
		{e.Wrap("op", e.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{e.Wrap("op", e.ErrUnsupportedMediaType), http.StatusUnsupportedMediaType},
		{e.Wrap("op", e.ErrNotFound), http.StatusNotFound},
		{e.Wrap("op", e.ErrDuplicateArticle), http.StatusConflict},
		{e.Wrap("op", e.ErrDegenerateVector), http.StatusUnprocessableEntity},
		{e.Wrap("op", e.ErrDimensionMismatch), http.StatusUnprocessableEntity},
		{errors.Join(e.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.Join(e.ErrEmbeddingFailed, errors.New("unavailable")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if code, _ := ToHTTPResponse(tt.err); code != tt.code {
			t.Errorf("ToHTTPResponse(%v) = %d, want %d", tt.err, code, tt.code)
		}
	}

	if _, msg := ToHTTPResponse(e.Wrap("op", e.ErrInvalidArticleNumber)); msg != e.ErrInvalidArticleNumber.Error() {
		t.Errorf("message = %q", msg)
	}
}

func TestParseMinSimilarity(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0.9", want: 0.9},
		{in: "1", want: 1},
		{in: "-0.1", wantErr: true},
		{in: "1.01", wantErr: true},
		{in: "high", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseMinSimilarity(tt.in)
		if tt.wantErr {
			if !errors.Is(err, e.ErrInvalidMinSimilarity) {
				t.Errorf("parseMinSimilarity(%q) error = %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseMinSimilarity(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParseTopK(t *testing.T) {
	if k, err := parseTopK(""); err != nil || k != 0 {
		t.Errorf("parseTopK(\"\") = %d, %v", k, err)
	}
	if k, err := parseTopK("5"); err != nil || k != 5 {
		t.Errorf("parseTopK(5) = %d, %v", k, err)
	}
	for _, s := range []string{"0", "-1", "x"} {
		if _, err := parseTopK(s); !errors.Is(err, e.ErrInvalidTopK) {
			t.Errorf("parseTopK(%q) error = %v", s, err)
		}
	}
}

func TestSimilarityPercent(t *testing.T) {
	if got := similarityPercent(0.98765).String(); got != "98.8" {
		t.Errorf("similarityPercent = %s, want 98.8", got)
	}
}

func TestSaveProduct(t *testing.T) {
	catalog := &fakeCatalog{}
	router := newTestRouter(catalog, &fakeMatcher{})

	body, ct := multipartBody(t, map[string]string{
		"article_number": "fr-apple-001",
		"product_name":   "Apple",
		"barcode":        " ",
	}, pngHeader)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if catalog.saved.Barcode != nil {
		t.Errorf("blank barcode must be passed as nil")
	}
	if catalog.saved.Image.MimeType != "image/png" {
		t.Errorf("mime = %q", catalog.saved.Image.MimeType)
	}

	var res ProductResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.ArticleNumber != "FR-APPLE-001" {
		t.Errorf("article = %q", res.ArticleNumber)
	}
}

func TestSaveProductErrors(t *testing.T) {
	t.Run("not multipart", func(t *testing.T) {
		router := newTestRouter(&fakeCatalog{}, &fakeMatcher{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("no image", func(t *testing.T) {
		catalog := &fakeCatalog{}
		router := newTestRouter(catalog, &fakeMatcher{})
		body, ct := multipartBody(t, map[string]string{"article_number": "ABC123", "product_name": "x"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
		if catalog.saved != nil {
			t.Error("usecase must not be called without an image")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		catalog := &fakeCatalog{}
		router := newTestRouter(catalog, &fakeMatcher{})
		body, ct := multipartBody(t, map[string]string{"article_number": "ABC123", "product_name": "x"}, []byte("just some text"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d", rec.Code)
		}
		if catalog.saved != nil {
			t.Error("usecase must not be called for a non-image upload")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		catalog := &fakeCatalog{saveErr: e.Wrap("op", e.ErrDuplicateArticle)}
		router := newTestRouter(catalog, &fakeMatcher{})
		body, ct := multipartBody(t, map[string]string{"article_number": "ABC123", "product_name": "x"}, pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestMatchImage(t *testing.T) {
	product := domain.Product{ID: 7, ArticleNumber: "FR-APPLE-001", Name: "Apple", CreatedAt: time.Now()}

	t.Run("barcode verification", func(t *testing.T) {
		matcher := &fakeMatcher{res: &usecase.MatchRes{Verification: usecase.NewVerification(product, 0.95)}}
		router := newTestRouter(&fakeCatalog{}, matcher)
		body, ct := multipartBody(t, map[string]string{"barcode": "4006381333931"}, pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var res MatchResultResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatal(err)
		}
		if res.Mode != matchModeBarcode || res.Verification == nil {
			t.Fatalf("unexpected response: %+v", res)
		}
		if res.Verification.Confidence != string(domain.ConfidenceVeryHigh) {
			t.Errorf("confidence = %q", res.Verification.Confidence)
		}
		if *matcher.lastReq.Barcode != "4006381333931" {
			t.Errorf("barcode = %q", *matcher.lastReq.Barcode)
		}
	})

	t.Run("open search", func(t *testing.T) {
		matcher := &fakeMatcher{res: &usecase.MatchRes{Matches: []usecase.Match{usecase.NewMatch(product, 0.7)}}}
		router := newTestRouter(&fakeCatalog{}, matcher)
		body, ct := multipartBody(t, map[string]string{"top_k": "5", "min_similarity": "0.5"}, pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if matcher.lastReq.TopK != 5 || matcher.lastReq.MinSimilarity != 0.5 || matcher.lastReq.Barcode != nil {
			t.Errorf("unexpected request: %+v", matcher.lastReq)
		}

		var res MatchResultResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatal(err)
		}
		if res.Mode != matchModeSearch || len(res.Matches) != 1 || res.Matches[0].Confidence != string(domain.ConfidenceMedium) {
			t.Errorf("unexpected response: %+v", res)
		}
	})

	t.Run("barcode not found", func(t *testing.T) {
		matcher := &fakeMatcher{err: e.Wrap("op", e.ErrNotFound)}
		router := newTestRouter(&fakeCatalog{}, matcher)
		body, ct := multipartBody(t, map[string]string{"barcode": "000"}, pngHeader)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/matches", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestProductRoutes(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*domain.Product{
		"FR-APPLE-001": {ID: 42, ArticleNumber: "FR-APPLE-001", Name: "Apple"},
	}}
	router := newTestRouter(catalog, &fakeMatcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/FR-APPLE-001", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/MISSING-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/FR-APPLE-001/similar?top_k=2", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("similar status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/products/FR-APPLE-001", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if catalog.deletedID != 42 {
		t.Errorf("deleted id = %d, want 42", catalog.deletedID)
	}
}

func TestMaintenanceRoutes(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeMatcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/maintenance/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}

	var stats StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Valid != 0 || stats.Orphans != 0 || stats.WithBarcode != 0 || stats.CreatedLast24h != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/sweep", nil))
	var sweep SweepResponse
	if err := json.NewDecoder(rec.Body).Decode(&sweep); err != nil || sweep.Removed != 2 {
		t.Errorf("sweep = %+v, %v", sweep, err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/backfill", nil))
	if !strings.Contains(rec.Body.String(), `"degenerate":[]`) {
		t.Errorf("backfill body = %s", rec.Body.String())
	}
}

func TestSuggest(t *testing.T) {
	router := newTestRouter(&fakeCatalog{}, &fakeMatcher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", strings.NewReader(`{"description":"red apple"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var res SuggestionResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Warning == "" {
		t.Error("provider failure must surface as a warning")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", strings.NewReader(`not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
}
