package usecase

import (
	"context"

	"github.com/DRSN-tech/image-catalog/internal/domain"
)

type BlobInfra interface {
	// Fetch скачивает объект во временный файл и возвращает его описание
	Fetch(ctx context.Context, bucket, key string) (domain.ObjectInfo, error)
	ProcessedPath(key string) string
	Relocate(ctx context.Context, bucket, key string) error
	Backup(ctx context.Context, id string, data []byte) error
	Cleanup(path string)
}

type ImageEncoder interface {
	Encode(path string) (domain.EncodedImage, error)
}

type LocationResolver interface {
	ResolveFromImage(ctx context.Context, path string) domain.LocationResult
	ResolveFromCoordinates(ctx context.Context, lat, lon float64) domain.LocationResult
	ResolveFromName(ctx context.Context, name string) domain.LocationResult
}

type ImageAnalyzer interface {
	Analyze(ctx context.Context, image domain.EncodedImage, location *domain.LocationDetails) (*domain.ImageAnalysis, error)
}

type Embedder interface {
	EmbedImage(ctx context.Context, image domain.EncodedImage, contextText string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
