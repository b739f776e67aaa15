package usecase

import (
	"context"

	"github.com/DRSN-tech/image-catalog/internal/domain"
)

type EnrichmentUC interface {
	Process(ctx context.Context, event domain.StorageEvent) Result
}

type VectorSink interface {
	Upsert(ctx context.Context, vector []float32, sourceID string, record domain.ImageRecord) (string, error)
}

type SearchUC interface {
	Search(ctx context.Context, req *SearchReq) (*SearchRes, error)
}
