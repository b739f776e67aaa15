package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"golang.org/x/time/rate"
)

// SearchUseCase ищет изображения по текстовому запросу.
type SearchUseCase struct {
	embedder      Embedder
	embeddingRepo EmbeddingRepository
	metadataRepo  MetadataRepository
	cacheRepo     CacheRepository
	limiter       *rate.Limiter
	maxResults    int
	logger        logger.Logger
}

func NewSearchUC(
	embedder Embedder,
	embeddingRepo EmbeddingRepository,
	metadataRepo MetadataRepository,
	cacheRepo CacheRepository,
	limiter *rate.Limiter,
	maxResults int,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		embedder:      embedder,
		embeddingRepo: embeddingRepo,
		metadataRepo:  metadataRepo,
		cacheRepo:     cacheRepo,
		limiter:       limiter,
		maxResults:    maxResults,
		logger:        logger,
	}
}

// Search возвращает ближайшие к запросу изображения, отбрасывая те, чьё расстояние больше порога.
func (s *SearchUseCase) Search(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.Search"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, e.Wrap(op, e.ErrMissingQuery)
	}

	limit := req.NumResults
	if limit <= 0 {
		return NewSearchRes(req.Query, []domain.SearchHit{}), nil
	}
	if s.maxResults > 0 && limit > s.maxResults {
		limit = s.maxResults
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	points, err := s.embeddingRepo.Search(ctx, vector, uint64(limit))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	kept := make([]domain.ScoredPoint, 0, len(points))
	for _, p := range points {
		if float64(p.Distance()) > req.Threshold {
			continue
		}
		kept = append(kept, p)
	}

	ids := make([]string, 0, len(kept))
	for _, p := range kept {
		ids = append(ids, p.ID)
	}
	metadata := s.loadMetadata(ctx, ids)

	hits := make([]domain.SearchHit, 0, len(kept))
	for _, p := range kept {
		meta, ok := metadata[p.ID]
		if !ok {
			meta = map[string]any{}
		}
		hits = append(hits, domain.SearchHit{
			ID:              p.ID,
			SimilarityScore: p.Score,
			Metadata:        meta,
		})
	}

	return NewSearchRes(req.Query, hits), nil
}

// loadMetadata берёт метаданные из кэша, недостающие читает из документного хранилища.
// Отсутствующие записи пропускаются, ошибки кэша только логируются.
func (s *SearchUseCase) loadMetadata(ctx context.Context, ids []string) map[string]map[string]any {
	result := make(map[string]map[string]any, len(ids))
	if len(ids) == 0 {
		return result
	}

	cached, err := s.cacheRepo.GetMetadata(ctx, ids)
	if err != nil {
		s.logger.Warnf("metadata cache unavailable: %v", err)
	}
	for id, meta := range cached {
		result[id] = meta
	}

	fetched := make(map[string]map[string]any)
	for _, id := range ids {
		if _, ok := result[id]; ok {
			continue
		}

		record, err := s.metadataRepo.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, e.ErrNotFound) {
				s.logger.Warnf("failed to load metadata for %s: %v", id, err)
			}
			continue
		}

		meta := record.ToMap()
		result[id] = meta
		fetched[id] = meta
	}

	if len(fetched) > 0 {
		if err := s.cacheRepo.SetMetadata(ctx, fetched); err != nil {
			s.logger.Warnf("failed to cache metadata: %v", err)
		}
	}

	return result
}
