package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
)

// fullPathMarker - префикс сегмента ключа, при котором локация собирается из всех каталогов
const fullPathMarker = "full_path_"

// EnrichmentUseCase обрабатывает новое изображение: анализ, эмбеддинг, запись в каталог, перенос.
type EnrichmentUseCase struct {
	blobInfra BlobInfra
	encoder   ImageEncoder
	resolver  LocationResolver
	analyzer  ImageAnalyzer
	embedder  Embedder
	sink      VectorSink
	logger    logger.Logger
}

func NewEnrichmentUC(
	blobInfra BlobInfra,
	encoder ImageEncoder,
	resolver LocationResolver,
	analyzer ImageAnalyzer,
	embedder Embedder,
	sink VectorSink,
	logger logger.Logger,
) *EnrichmentUseCase {
	return &EnrichmentUseCase{
		blobInfra: blobInfra,
		encoder:   encoder,
		resolver:  resolver,
		analyzer:  analyzer,
		embedder:  embedder,
		sink:      sink,
		logger:    logger,
	}
}

// Process прогоняет событие через пайплайн и возвращает статус 200, 400 или 500.
func (u *EnrichmentUseCase) Process(ctx context.Context, event domain.StorageEvent) Result {
	const op = "EnrichmentUseCase.Process"

	id, err := u.process(ctx, event)
	if err != nil {
		if errors.Is(err, e.ErrBadRequest) {
			u.logger.Warnf("%s: rejected event bucket=%q key=%q: %v", op, event.Bucket, event.ObjectKey, err)
			return NewResult(http.StatusBadRequest, err.Error(), "")
		}

		u.logger.Errorf(err, "%s: failed to process %s/%s", op, event.Bucket, event.ObjectKey)
		return NewResult(http.StatusInternalServerError, err.Error(), "")
	}

	u.logger.Infof("processed %s/%s as %s", event.Bucket, event.ObjectKey, id)
	return NewResult(http.StatusOK, "Success", id)
}

func (u *EnrichmentUseCase) process(ctx context.Context, event domain.StorageEvent) (string, error) {
	if err := event.Validate(); err != nil {
		return "", &StageError{Stage: StageValidate, Err: err}
	}

	obj, err := u.blobInfra.Fetch(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return "", &StageError{Stage: StageFetch, Err: err}
	}
	defer u.blobInfra.Cleanup(obj.LocalPath)

	location := u.resolveLocation(ctx, event, obj)

	image, err := u.encoder.Encode(obj.LocalPath)
	if err != nil {
		return "", &StageError{Stage: StageAnalyze, Err: err}
	}

	analysis, err := u.analyzer.Analyze(ctx, image, location)
	if err != nil {
		return "", &StageError{Stage: StageAnalyze, Err: err}
	}

	vector, err := u.embedder.EmbedImage(ctx, image, analysis.CombinedText())
	if err != nil {
		return "", &StageError{Stage: StageEmbed, Err: err}
	}

	record := domain.NewImageRecord(obj, analysis, u.blobInfra.ProcessedPath(obj.ObjectKey))
	id, err := u.sink.Upsert(ctx, vector, obj.ObjectKey, record)
	if err != nil {
		return "", &StageError{Stage: StageUpsert, Err: err}
	}

	if err := u.blobInfra.Relocate(ctx, obj.Bucket, obj.ObjectKey); err != nil {
		return "", &StageError{Stage: StageRelocate, Err: err}
	}

	return id, nil
}

// resolveLocation никогда не прерывает пайплайн: при любом сбое изображение обрабатывается без локации.
func (u *EnrichmentUseCase) resolveLocation(ctx context.Context, event domain.StorageEvent, obj domain.ObjectInfo) *domain.LocationDetails {
	name, ok := domain.LookupMetadata(event.Metadata, domain.MetadataLocationKey)
	if !ok {
		name, ok = domain.LookupMetadata(obj.Metadata, domain.MetadataLocationKey)
	}
	if !ok {
		name = DeriveLocationName(obj.ObjectKey)
	}

	if name != "" {
		res := u.resolver.ResolveFromName(ctx, name)
		switch res.Status {
		case domain.LocationFound:
			return res.Location
		case domain.LocationDegraded:
			u.logger.Warnf("location lookup for %q degraded: %v", name, res.Err)
		default:
			u.logger.Debugf("no location found for %q", name)
		}
	}

	res := u.resolver.ResolveFromImage(ctx, obj.LocalPath)
	if res.Status == domain.LocationDegraded {
		u.logger.Warnf("location from EXIF of %s degraded: %v", obj.ObjectKey, res.Err)
	}

	return res.Location
}

// DeriveLocationName извлекает название локации из ключа объекта.
// "Paris/eiffel.jpg" -> "Paris". Если среди каталогов есть сегмент с префиксом full_path_,
// все каталоги склеиваются через "_". Ключ без каталогов даёт пустую строку.
func DeriveLocationName(key string) string {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	if len(segments) < 2 {
		return ""
	}

	dirs := segments[:len(segments)-1]
	for _, d := range dirs {
		if strings.HasPrefix(d, fullPathMarker) {
			return strings.Join(dirs, "_")
		}
	}

	return dirs[0]
}
