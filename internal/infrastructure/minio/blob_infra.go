package minio

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/jitter"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/google/uuid"
)

const deleteAttempts = 3

// BlobInfrastructure скачивает исходные изображения, переносит обработанные и хранит резервные копии.
type BlobInfrastructure struct {
	repo       usecase.ObjectRepository
	cfg        *cfg.MinIOCfg
	scratchDir string
	backoff    jitter.Backoff
	logger     logger.Logger
}

func NewBlobInfrastructure(repo usecase.ObjectRepository, cfg *cfg.MinIOCfg, scratchDir string, logger logger.Logger) *BlobInfrastructure {
	return &BlobInfrastructure{
		repo:       repo,
		cfg:        cfg,
		scratchDir: scratchDir,
		backoff:    jitter.Backoff{Base: time.Second, Max: 4 * time.Second, Jitter: jitter.DefaultJitter},
		logger:     logger,
	}
}

// Fetch читает метаданные объекта и скачивает его во временный файл.
func (b *BlobInfrastructure) Fetch(ctx context.Context, bucket, key string) (domain.ObjectInfo, error) {
	const op = "BlobInfrastructure.Fetch"

	info, err := b.repo.Stat(ctx, bucket, key)
	if err != nil {
		return domain.ObjectInfo{}, e.Wrap(op, err)
	}

	localPath := filepath.Join(b.scratchDir, uuid.NewString()+"."+infrastructure.ScratchExtension(key, info.ContentType))
	if err := b.repo.Download(ctx, bucket, key, localPath); err != nil {
		b.Cleanup(localPath)
		return domain.ObjectInfo{}, e.Wrap(op, err)
	}
	info.LocalPath = localPath

	return info, nil
}

// ProcessedPath возвращает путь объекта после переноса в бакет обработанных изображений.
func (b *BlobInfrastructure) ProcessedPath(key string) string {
	return b.cfg.ProcessedBucket + "/" + key
}

// Relocate копирует объект в бакет обработанных изображений и удаляет исходный.
// Если исходного объекта уже нет, а копия есть, перенос считается выполненным.
func (b *BlobInfrastructure) Relocate(ctx context.Context, bucket, key string) error {
	const op = "BlobInfrastructure.Relocate"

	if err := b.repo.Copy(ctx, bucket, b.cfg.ProcessedBucket, key); err != nil {
		if !errors.Is(err, e.ErrObjectNotFound) {
			return e.Wrap(op, err)
		}

		exists, existsErr := b.repo.Exists(ctx, b.cfg.ProcessedBucket, key)
		if existsErr != nil {
			return e.Wrap(op, existsErr)
		}
		if !exists {
			return e.Wrap(op, err)
		}

		b.logger.Infof("%s/%s already relocated to %s", bucket, key, b.cfg.ProcessedBucket)
		return nil
	}

	return b.deleteWithRetry(ctx, bucket, key)
}

// deleteWithRetry удаляет объект с экспоненциальной задержкой и jitter.
func (b *BlobInfrastructure) deleteWithRetry(ctx context.Context, bucket, key string) error {
	const op = "BlobInfrastructure.deleteWithRetry"

	var err error
	for attempt := 0; attempt < deleteAttempts; attempt++ {
		if err = b.repo.Delete(ctx, bucket, key); err == nil {
			return nil
		}

		if attempt < deleteAttempts-1 {
			b.logger.Warnf("delete %s/%s failed, retrying (attempt %d): %v", bucket, key, attempt+1, err)
			if !b.backoff.Sleep(ctx, attempt) {
				return e.Wrap(op, ctx.Err())
			}
		}
	}

	return e.Wrap(op, err)
}

// Backup сохраняет JSON-копию записи индекса под ключом <prefix>/<id>.json.
func (b *BlobInfrastructure) Backup(ctx context.Context, id string, data []byte) error {
	const op = "BlobInfrastructure.Backup"

	key := path.Join(b.cfg.BackupPrefix, id+".json")
	if err := b.repo.Put(ctx, b.cfg.BackupBucket, key, data, "application/json"); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// Cleanup удаляет временный файл.
func (b *BlobInfrastructure) Cleanup(localPath string) {
	if localPath == "" {
		return
	}

	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Warnf("failed to remove scratch file %s: %v", localPath, err)
	}
}
