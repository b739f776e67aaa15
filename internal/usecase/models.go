package usecase

import (
	"time"

	"github.com/DRSN-tech/image-catalog/internal/domain"
)

// ENRICHMENT USECASE

// Result - итог обработки одного события: HTTP-подобный статус и сообщение
type Result struct {
	Status  int
	Message string
	ID      string // идентификатор записи в индексе, пуст при ошибке
}

// Stage - шаг пайплайна обогащения
type Stage string

const (
	StageValidate Stage = "validate"
	StageFetch    Stage = "fetch"
	StageAnalyze  Stage = "analyze"
	StageEmbed    Stage = "embed"
	StageUpsert   Stage = "upsert"
	StageRelocate Stage = "relocate"
)

// StageError сообщает, на каком шаге пайплайн остановился
type StageError struct {
	Stage Stage
	Err   error
}

func (s *StageError) Error() string {
	return string(s.Stage) + ": " + s.Err.Error()
}

func (s *StageError) Unwrap() error {
	return s.Err
}

// SEARCH USECASE

// SearchReq - запрос семантического поиска
type SearchReq struct {
	Query      string
	NumResults int
	Threshold  float64
}

// SearchRes - ответ семантического поиска
type SearchRes struct {
	Query   string
	Results []domain.SearchHit
}

// INFRASTUCTURE

// WriteRawMessageReq - запрос на публикацию уже сериализованного сообщения
type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// REPOSITORIES

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

// EventImageCatalogued - тип события о новой записи в каталоге
const EventImageCatalogued = "image.catalogued"

// OutboxEvent описывает событие в outbox-таблице
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   string
	AggregateID string // идентификатор записи каталога
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// CataloguedPayload - тело события image.catalogued
type CataloguedPayload struct {
	ID            string   `json:"id"`
	SourceBucket  string   `json:"source_bucket"`
	FileName      string   `json:"file_name"`
	ProcessedPath string   `json:"processed_path"`
	Tags          []string `json:"tags"`
}

// MAPPERS

func NewResult(status int, message string, id string) Result {
	return Result{
		Status:  status,
		Message: message,
		ID:      id,
	}
}

func NewSearchReq(query string, numResults int, threshold float64) *SearchReq {
	return &SearchReq{
		Query:      query,
		NumResults: numResults,
		Threshold:  threshold,
	}
}

func NewSearchRes(query string, results []domain.SearchHit) *SearchRes {
	return &SearchRes{
		Query:   query,
		Results: results,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewOutboxEvent(eventID, eventType, aggregateID string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   time.Now().UTC(),
	}
}

func NewCataloguedPayload(id string, record domain.ImageRecord) CataloguedPayload {
	return CataloguedPayload{
		ID:            id,
		SourceBucket:  record.SourceBucket,
		FileName:      record.FileName,
		ProcessedPath: record.ProcessedPath,
		Tags:          record.Tags(),
	}
}
