package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrVectorSizeMismatch   = fmt.Errorf("vector size does not match embedding dimension")

	// Ошибки входящего события (400 Bad Request)
	ErrBadRequest       = fmt.Errorf("bad request")
	ErrMissingBucket    = fmt.Errorf("event bucket is required")
	ErrMissingObjectKey = fmt.Errorf("event object key is required")
	ErrMalformedEvent   = fmt.Errorf("malformed storage event")
	ErrMissingQuery     = fmt.Errorf("no text query provided")

	// Внутренние ошибки с изображениями
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrObjectNotFound       = fmt.Errorf("object not found")

	// Внутренние ошибки генеративной модели
	ErrAllRegionsFailed = fmt.Errorf("all regions failed")
	ErrEmptyModelOutput = fmt.Errorf("model returned empty output")
	ErrNoRegions        = fmt.Errorf("no regions configured")

	// Внутренние ошибки с векторами
	ErrEmptyEmbedding    = fmt.Errorf("embedding is empty")
	ErrZeroNormEmbedding = fmt.Errorf("embedding has zero norm")
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch")
	ErrEmptyPredictions  = fmt.Errorf("prediction response is empty")

	// Ошибки хранилищ
	ErrNotFound             = fmt.Errorf("not found")
	ErrUnknownDocumentStore = fmt.Errorf("unknown document store")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
