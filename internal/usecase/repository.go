package usecase

import (
	"context"

	"github.com/DRSN-tech/image-catalog/internal/domain"
)

type ObjectRepository interface {
	Stat(ctx context.Context, bucket, key string) (domain.ObjectInfo, error)
	Download(ctx context.Context, bucket, key, path string) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Copy(ctx context.Context, srcBucket, dstBucket, key string) error
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}

type EmbeddingRepository interface {
	Upsert(ctx context.Context, vectors []domain.Embedding) error
	Search(ctx context.Context, vector []float32, limit uint64) ([]domain.ScoredPoint, error)
}

// MetadataRepository - документное хранилище записей каталога.
// Get возвращает e.ErrNotFound, если записи нет.
type MetadataRepository interface {
	Save(ctx context.Context, id string, record domain.ImageRecord) error
	Get(ctx context.Context, id string) (*domain.ImageRecord, error)
}

// OutboxRepository - outbox-таблица событий каталога.
// GetAndMarkAsProcessing забирает pending-события и зависшие в processing.
// MarkAsPending возвращает событие в очередь после неудачной публикации.
type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
}

// CacheRepository - кэш результатов геокодинга и метаданных поиска.
// Ошибки кэша не должны ломать вызывающую сторону.
type CacheRepository interface {
	GetLocation(ctx context.Context, key string) (*domain.LocationDetails, bool, error)
	SetLocation(ctx context.Context, key string, location *domain.LocationDetails) error
	GetMetadata(ctx context.Context, ids []string) (map[string]map[string]any, error)
	SetMetadata(ctx context.Context, metadata map[string]map[string]any) error
}

// Transactor выполняет fn в транзакции документного хранилища.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
