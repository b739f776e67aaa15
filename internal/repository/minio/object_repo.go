package minio

import (
	"bytes"
	"context"
	"net/http"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ObjectRepo реализует репозиторий объектов поверх MinIO.
type ObjectRepo struct {
	mc *minio.Client
}

func NewObjectRepo(mc *minio.Client) *ObjectRepo {
	return &ObjectRepo{mc: mc}
}

// Stat возвращает размер, тип содержимого и пользовательские метаданные объекта.
func (o *ObjectRepo) Stat(ctx context.Context, bucket, key string) (domain.ObjectInfo, error) {
	info, err := o.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return domain.ObjectInfo{}, e.Wrap(whereami.WhereAmI(), mapError(err))
	}

	metadata := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		metadata[k] = v
	}

	return domain.ObjectInfo{
		Bucket:      bucket,
		ObjectKey:   key,
		Size:        info.Size,
		ContentType: info.ContentType,
		Metadata:    metadata,
	}, nil
}

// Download сохраняет объект в локальный файл.
func (o *ObjectRepo) Download(ctx context.Context, bucket, key, path string) error {
	if err := o.mc.FGetObject(ctx, bucket, key, path, minio.GetObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), mapError(err))
	}

	return nil
}

// Put загружает объект целиком; существующий объект перезаписывается.
func (o *ObjectRepo) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)

	_, err := o.mc.PutObject(ctx, bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Copy копирует объект в другой бакет под тем же ключом.
func (o *ObjectRepo) Copy(ctx context.Context, srcBucket, dstBucket, key string) error {
	_, err := o.mc.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dstBucket, Object: key},
		minio.CopySrcOptions{Bucket: srcBucket, Object: key},
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), mapError(err))
	}

	return nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (o *ObjectRepo) Delete(ctx context.Context, bucket, key string) error {
	if err := o.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *ObjectRepo) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := o.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}

	return false, e.Wrap(whereami.WhereAmI(), err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound
}

// mapError превращает "объект не найден" в e.ErrObjectNotFound.
func mapError(err error) error {
	if isNotFound(err) {
		return e.Wrap(err.Error(), e.ErrObjectNotFound)
	}

	return err
}
