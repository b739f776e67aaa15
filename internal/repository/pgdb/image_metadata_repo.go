package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const (
	tagKindVisual = "visual"
	tagKindObject = "object"
)

type ImageMetadataRepo struct {
	pool *pgxpool.Pool
	conv converter.ImageMetadataConverter
}

func NewImageMetadataRepo(pool *pgxpool.Pool, conv converter.ImageMetadataConverter) *ImageMetadataRepo {
	return &ImageMetadataRepo{
		pool: pool,
		conv: conv,
	}
}

// Save записывает запись каталога и её теги. Должен вызываться внутри транзакции.
// Повторная запись с тем же id перезаписывает документ.
func (r *ImageMetadataRepo) Save(ctx context.Context, id string, record domain.ImageRecord) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := r.conv.ToModel(id, record)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO image_metadata (
			id,
			file_name,
			source_bucket,
			content_type,
			size,
			scene_description,
			visual_tags,
			object_tags,
			processed_path,
			location
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			source_bucket = EXCLUDED.source_bucket,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			scene_description = EXCLUDED.scene_description,
			visual_tags = EXCLUDED.visual_tags,
			object_tags = EXCLUDED.object_tags,
			processed_path = EXCLUDED.processed_path,
			location = EXCLUDED.location;
	`

	if _, err := tx.Exec(ctx, query,
		model.ID,
		model.FileName,
		model.SourceBucket,
		model.ContentType,
		model.Size,
		model.SceneDescription,
		model.VisualTags,
		model.ObjectTags,
		model.ProcessedPath,
		model.Location,
	); err != nil {
		return fmt.Errorf("%s: failed to upsert image metadata: %w", whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM image_tags WHERE image_id = $1;`, model.ID); err != nil {
		return fmt.Errorf("%s: failed to clear image tags: %w", whereami.WhereAmI(), err)
	}

	batch := &pgx.Batch{}
	for _, tag := range model.VisualTags {
		batch.Queue(`INSERT INTO image_tags (image_id, tag, kind) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`, model.ID, tag, tagKindVisual)
	}
	for _, tag := range model.ObjectTags {
		batch.Queue(`INSERT INTO image_tags (image_id, tag, kind) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING;`, model.ID, tag, tagKindObject)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: failed to insert image tags: %w", whereami.WhereAmI(), err)
	}

	return nil
}

func (r *ImageMetadataRepo) Get(ctx context.Context, id string) (*domain.ImageRecord, error) {
	query := `
		SELECT id, file_name, source_bucket, content_type, size, scene_description,
			visual_tags, object_tags, processed_path, location, created_at
		FROM image_metadata
		WHERE id = $1;
	`

	var model converter.ImageMetadataModel
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&model.ID,
		&model.FileName,
		&model.SourceBucket,
		&model.ContentType,
		&model.Size,
		&model.SceneDescription,
		&model.VisualTags,
		&model.ObjectTags,
		&model.ProcessedPath,
		&model.Location,
		&model.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: failed to get image metadata %s: %w", whereami.WhereAmI(), id, err)
	}

	record, err := r.conv.ToEntity(&model)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return record, nil
}

// postgresDuplicate сообщает, нарушено ли ограничение уникальности.
func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
