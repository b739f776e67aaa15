package domain

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/DRSN-tech/image-catalog/pkg/e"
)

// s3Notification - уведомление MinIO о событиях бакета (формат S3 event records)
type s3Notification struct {
	EventName string     `json:"EventName"`
	Key       string     `json:"Key"`
	Records   []s3Record `json:"Records"`
}

type s3Record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key          string            `json:"key"`
			Size         int64             `json:"size"`
			ContentType  string            `json:"contentType"`
			UserMetadata map[string]string `json:"userMetadata"`
		} `json:"object"`
	} `json:"s3"`
}

// finalizeNotification - событие завершения загрузки объекта {bucket, name, metadata}
type finalizeNotification struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// DecodeStorageEvents разбирает тело уведомления хранилища.
// Поддерживаются записи S3 (MinIO) и плоский формат {bucket, name, metadata}.
// Записи, не относящиеся к созданию объекта, пропускаются.
func DecodeStorageEvents(data []byte) ([]StorageEvent, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, e.Wrap(err.Error(), e.ErrMalformedEvent)
	}

	if _, ok := probe["Records"]; ok {
		var n s3Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, e.Wrap(err.Error(), e.ErrMalformedEvent)
		}

		events := make([]StorageEvent, 0, len(n.Records))
		for _, r := range n.Records {
			if r.EventName != "" && !strings.Contains(r.EventName, "ObjectCreated") {
				continue
			}

			key, err := url.QueryUnescape(r.S3.Object.Key)
			if err != nil {
				return nil, e.Wrap(err.Error(), e.ErrMalformedEvent)
			}
			events = append(events, NewStorageEvent(r.S3.Bucket.Name, key, r.S3.Object.UserMetadata))
		}

		return events, nil
	}

	var n finalizeNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, e.Wrap(err.Error(), e.ErrMalformedEvent)
	}

	return []StorageEvent{NewStorageEvent(n.Bucket, n.Name, n.Metadata)}, nil
}
