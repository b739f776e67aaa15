package usecase

import (
	"context"
	"encoding/json"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/google/uuid"
)

// CatalogSink сохраняет вектор и метаданные изображения: резервная копия, документное хранилище, индекс.
type CatalogSink struct {
	blobInfra     BlobInfra
	metadataRepo  MetadataRepository
	outboxRepo    OutboxRepository // nil, если хранилище не поддерживает outbox
	embeddingRepo EmbeddingRepository
	transactor    Transactor
	logger        logger.Logger
	newID         func() string
}

func NewCatalogSink(
	blobInfra BlobInfra,
	metadataRepo MetadataRepository,
	outboxRepo OutboxRepository,
	embeddingRepo EmbeddingRepository,
	transactor Transactor,
	logger logger.Logger,
) *CatalogSink {
	return &CatalogSink{
		blobInfra:     blobInfra,
		metadataRepo:  metadataRepo,
		outboxRepo:    outboxRepo,
		embeddingRepo: embeddingRepo,
		transactor:    transactor,
		logger:        logger,
		newID:         uuid.NewString,
	}
}

// backupDocument - JSON-копия записи индекса, по которой её можно восстановить
type backupDocument struct {
	ID        string             `json:"id"`
	SourceID  string             `json:"source_id"`
	Embedding []float32          `json:"embedding"`
	Metadata  domain.ImageRecord `json:"metadata"`
}

// Upsert генерирует новый идентификатор и пишет запись в порядке backup -> metadata -> index.
// Каждая запись идемпотентно перезаписывается при повторе.
func (s *CatalogSink) Upsert(ctx context.Context, vector []float32, sourceID string, record domain.ImageRecord) (string, error) {
	const op = "CatalogSink.Upsert"

	if len(vector) == 0 {
		return "", e.Wrap(op, e.ErrEmptyEmbedding)
	}

	id := s.newID()
	record.ID = id

	backup, err := json.Marshal(backupDocument{
		ID:        id,
		SourceID:  sourceID,
		Embedding: vector,
		Metadata:  record,
	})
	if err != nil {
		return "", e.Wrap(op, err)
	}

	if err := s.blobInfra.Backup(ctx, id, backup); err != nil {
		return "", e.Wrap(op, err)
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.metadataRepo.Save(ctx, id, record); err != nil {
			return err
		}

		if s.outboxRepo == nil {
			return nil
		}

		payload, err := json.Marshal(NewCataloguedPayload(id, record))
		if err != nil {
			return err
		}

		_, err = s.outboxRepo.Create(ctx, NewOutboxEvent(uuid.NewString(), EventImageCatalogued, id, payload))
		return err
	})
	if err != nil {
		s.logger.Warnf("metadata write failed, backup %s left without index entry: %v", id, err)
		return "", e.Wrap(op, err)
	}

	embedding := domain.NewEmbedding(id, vector, domain.Payload{
		"source_id": sourceID,
		"file_name": record.FileName,
	})
	if err := s.embeddingRepo.Upsert(ctx, []domain.Embedding{*embedding}); err != nil {
		s.logger.Warnf("index upsert failed, metadata %s left without vector: %v", id, err)
		return "", e.Wrap(op, err)
	}

	s.logger.Debugf("catalogued %s as %s", sourceID, id)
	return id, nil
}
