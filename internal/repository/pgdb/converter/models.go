package converter

import "time"

// ImageMetadataModel представляет запись таблицы image_metadata в PostgreSQL.
type ImageMetadataModel struct {
	ID               string    `db:"id"`
	FileName         string    `db:"file_name"`
	SourceBucket     string    `db:"source_bucket"`
	ContentType      string    `db:"content_type"`
	Size             int64     `db:"size"`
	SceneDescription string    `db:"scene_description"`
	VisualTags       []string  `db:"visual_tags"`
	ObjectTags       []string  `db:"object_tags"`
	ProcessedPath    string    `db:"processed_path"`
	Location         []byte    `db:"location"` // jsonb, NULL если локация не найдена
	CreatedAt        time.Time `db:"created_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	AggregateID string     `db:"aggregate_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
