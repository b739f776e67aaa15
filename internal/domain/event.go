package domain

import (
	"path"
	"strings"

	"github.com/DRSN-tech/image-catalog/pkg/e"
)

// MetadataLocationKey - ключ метаданных с явно заданной локацией
const MetadataLocationKey = "location"

// StorageEvent - событие о новом объекте в хранилище
type StorageEvent struct {
	Bucket    string            `json:"bucket"`
	ObjectKey string            `json:"name"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func NewStorageEvent(bucket, objectKey string, metadata map[string]string) StorageEvent {
	return StorageEvent{Bucket: bucket, ObjectKey: objectKey, Metadata: metadata}
}

func (ev StorageEvent) Validate() error {
	if strings.TrimSpace(ev.Bucket) == "" {
		return e.Wrap(e.ErrMissingBucket.Error(), e.ErrBadRequest)
	}
	if strings.TrimSpace(ev.ObjectKey) == "" {
		return e.Wrap(e.ErrMissingObjectKey.Error(), e.ErrBadRequest)
	}

	return nil
}

// FileName возвращает последний сегмент ключа объекта
func (ev StorageEvent) FileName() string {
	return path.Base(ev.ObjectKey)
}

// LookupMetadata ищет значение без учёта регистра ключа.
// MinIO отдаёт пользовательские метаданные как "X-Amz-Meta-Location" или "Location".
func LookupMetadata(metadata map[string]string, key string) (string, bool) {
	for k, v := range metadata {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == key && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}

	return "", false
}
