package converter

import (
	"encoding/json"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
)

// ImageMetadataConverter преобразует записи каталога между domain и моделью PostgreSQL.
type ImageMetadataConverter interface {
	ToModel(id string, entity domain.ImageRecord) (*ImageMetadataModel, error)
	ToEntity(model *ImageMetadataModel) (*domain.ImageRecord, error)
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ImageMetadataConverterImpl struct{}

func NewImageMetadataConverterImpl() *ImageMetadataConverterImpl {
	return &ImageMetadataConverterImpl{}
}

func (c *ImageMetadataConverterImpl) ToModel(id string, entity domain.ImageRecord) (*ImageMetadataModel, error) {
	var location []byte
	if entity.Location != nil {
		var err error
		location, err = json.Marshal(entity.Location)
		if err != nil {
			return nil, err
		}
	}

	return &ImageMetadataModel{
		ID:               id,
		FileName:         entity.FileName,
		SourceBucket:     entity.SourceBucket,
		ContentType:      entity.ContentType,
		Size:             entity.Size,
		SceneDescription: entity.SceneDescription,
		VisualTags:       nonNil(entity.VisualTags),
		ObjectTags:       nonNil(entity.ObjectTags),
		ProcessedPath:    entity.ProcessedPath,
		Location:         location,
		CreatedAt:        entity.CreatedAt,
	}, nil
}

func (c *ImageMetadataConverterImpl) ToEntity(model *ImageMetadataModel) (*domain.ImageRecord, error) {
	var location *domain.LocationDetails
	if len(model.Location) > 0 {
		location = &domain.LocationDetails{}
		if err := json.Unmarshal(model.Location, location); err != nil {
			return nil, err
		}
	}

	return &domain.ImageRecord{
		ID:               model.ID,
		FileName:         model.FileName,
		SourceBucket:     model.SourceBucket,
		ContentType:      model.ContentType,
		Size:             model.Size,
		SceneDescription: model.SceneDescription,
		VisualTags:       nonNil(model.VisualTags),
		ObjectTags:       nonNil(model.ObjectTags),
		ProcessedPath:    model.ProcessedPath,
		Location:         location,
		CreatedAt:        model.CreatedAt,
	}, nil
}

type OutboxEventConverterImpl struct{}

func NewOutboxEventConverterImpl() *OutboxEventConverterImpl {
	return &OutboxEventConverterImpl{}
}

func (c *OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   entity.EventType,
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (c *OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   model.EventType,
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c *OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	events := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		events = append(events, c.ToEntity(m))
	}

	return events
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
