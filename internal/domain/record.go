package domain

import "time"

// ImageRecord - метаданные изображения, которые пишутся в индекс
type ImageRecord struct {
	ID               string           `json:"id,omitempty" firestore:"-"`
	FileName         string           `json:"file_name" firestore:"file_name"`
	SourceBucket     string           `json:"source_bucket" firestore:"source_bucket"`
	ContentType      string           `json:"content_type" firestore:"content_type"`
	Size             int64            `json:"size" firestore:"size"`
	SceneDescription string           `json:"scene_description" firestore:"scene_description"`
	VisualTags       []string         `json:"visual_tags" firestore:"visual_tags"`
	ObjectTags       []string         `json:"object_tags" firestore:"object_tags"`
	ProcessedPath    string           `json:"processed_path" firestore:"processed_path"`
	Location         *LocationDetails `json:"location,omitempty" firestore:"location,omitempty"`
	CreatedAt        time.Time        `json:"created_at,omitzero" firestore:"created_at,serverTimestamp"`
}

func NewImageRecord(obj ObjectInfo, analysis *ImageAnalysis, processedPath string) ImageRecord {
	return ImageRecord{
		FileName:         fileName(obj.ObjectKey),
		SourceBucket:     obj.Bucket,
		ContentType:      obj.ContentType,
		Size:             obj.Size,
		SceneDescription: analysis.SceneDescription,
		VisualTags:       append([]string(nil), analysis.VisualTags...),
		ObjectTags:       append([]string(nil), analysis.ObjectTags...),
		ProcessedPath:    processedPath,
		Location:         analysis.Location.Clone(),
	}
}

// Tags возвращает все теги записи без дубликатов, сохраняя порядок.
func (r ImageRecord) Tags() []string {
	seen := make(map[string]struct{}, len(r.VisualTags)+len(r.ObjectTags))
	out := make([]string, 0, len(r.VisualTags)+len(r.ObjectTags))
	for _, t := range append(append([]string(nil), r.VisualTags...), r.ObjectTags...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

// ToMap возвращает представление записи для ответа поиска.
func (r ImageRecord) ToMap() map[string]any {
	m := map[string]any{
		"file_name":         r.FileName,
		"source_bucket":     r.SourceBucket,
		"content_type":      r.ContentType,
		"size":              r.Size,
		"scene_description": r.SceneDescription,
		"visual_tags":       r.VisualTags,
		"object_tags":       r.ObjectTags,
		"processed_path":    r.ProcessedPath,
	}
	if r.Location != nil {
		m["location"] = r.Location
	}
	if !r.CreatedAt.IsZero() {
		m["created_at"] = r.CreatedAt
	}

	return m
}

func fileName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}

	return key
}
