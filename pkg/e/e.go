package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Ошибки векторов
	ErrDegenerateVector  = fmt.Errorf("degenerate vector: zero norm")
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch")
	ErrEmbeddingFailed   = fmt.Errorf("embedding extraction failed")

	// Ошибки хранилища
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicateArticle  = fmt.Errorf("article number already exists")
	ErrStoreUnavailable  = fmt.Errorf("store unavailable")
	ErrImageStoreFailure = fmt.Errorf("image storage failure")

	// 400 Bad Request
	ErrValidation            = fmt.Errorf("validation error")
	ErrArticleNumberRequired = fmt.Errorf("%w: article number is required", ErrValidation)
	ErrInvalidArticleNumber  = fmt.Errorf("%w: article number must be 6-32 characters of A-Z, 0-9 and '-'", ErrValidation)
	ErrProductNameRequired   = fmt.Errorf("%w: product name is required", ErrValidation)
	ErrNoImage               = fmt.Errorf("%w: no image provided", ErrValidation)
	ErrUnsupportedMediaType  = fmt.Errorf("%w: unsupported media type", ErrValidation)
	ErrFileTooLarge          = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidTopK           = fmt.Errorf("%w: top_k must be positive", ErrValidation)
	ErrInvalidMinSimilarity  = fmt.Errorf("%w: min_similarity must be within [0, 1]", ErrValidation)
	ErrDescriptionRequired   = fmt.Errorf("%w: description is required", ErrValidation)
	ErrExpectedMultipart     = fmt.Errorf("%w: expected multipart/form-data", ErrValidation)
	ErrInvalidID             = fmt.Errorf("%w: invalid id", ErrValidation)

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
