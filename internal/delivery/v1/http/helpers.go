package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/product-matcher/internal/infrastructure"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// validationErrors перечислены от частных к общим: сообщение берётся у первой совпавшей.
var validationErrors = []error{
	e.ErrArticleNumberRequired,
	e.ErrInvalidArticleNumber,
	e.ErrProductNameRequired,
	e.ErrNoImage,
	e.ErrInvalidTopK,
	e.ErrInvalidMinSimilarity,
	e.ErrDescriptionRequired,
	e.ErrExpectedMultipart,
	e.ErrInvalidID,
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, e.ErrUnsupportedMediaType.Error()
	case errors.Is(err, e.ErrValidation):
		for _, v := range validationErrors {
			if errors.Is(err, v) {
				return http.StatusBadRequest, v.Error()
			}
		}
		return http.StatusBadRequest, e.ErrValidation.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.ErrNotFound.Error()
	case errors.Is(err, e.ErrDuplicateArticle):
		return http.StatusConflict, e.ErrDuplicateArticle.Error()
	case errors.Is(err, e.ErrDegenerateVector):
		return http.StatusUnprocessableEntity, e.ErrDegenerateVector.Error()
	case errors.Is(err, e.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity, e.ErrDimensionMismatch.Error()
	case errors.Is(err, e.ErrEmbeddingFailed):
		return http.StatusServiceUnavailable, e.ErrEmbeddingFailed.Error()
	case errors.Is(err, e.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, e.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrValidation, err))
	}

	return nil
}

// optionalFormValue возвращает nil, если поле отсутствует или пустое.
func optionalFormValue(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// parseTopK разбирает top_k; пустое значение означает значение по умолчанию (0).
func parseTopK(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	topK, err := strconv.Atoi(s)
	if err != nil || topK <= 0 {
		return 0, e.ErrInvalidTopK
	}

	return topK, nil
}

// parseMinSimilarity разбирает порог сходства в шкале [0, 1]; пустое значение — 0.
func parseMinSimilarity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, e.ErrInvalidMinSimilarity
	}

	if d.LessThan(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(1)) {
		return 0, e.ErrInvalidMinSimilarity
	}

	return d.InexactFloat64(), nil
}

// parseImage читает единственный файл из поля формы.
func parseImage(r *http.Request, field string, maxSize int64) (*usecase.ProductImage, error) {
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, e.ErrNoImage
	}

	data, mimeType, err := readFile(files[0], maxSize)
	if err != nil {
		return nil, err
	}

	return usecase.NewProductImage(data, mimeType, int64(len(data)), files[0].Filename), nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	defer src.Close()

	// Читаем на байт больше лимита, чтобы отличить файл ровно в лимит от превышающего
	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, "", e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, "", e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	mimeType, err := infrastructure.DetectImageMIME(data)
	if err != nil {
		return nil, "", e.Wrap(fh.Filename, err)
	}

	return data, mimeType, nil
}

// similarityPercent переводит сходство в проценты с одним знаком после запятой.
func similarityPercent(similarity float64) decimal.Decimal {
	return decimal.NewFromFloat(similarity).Mul(decimal.NewFromInt(100)).Round(1)
}
