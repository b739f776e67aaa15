package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchDeps struct {
	calls    []string
	embedder *fakeEmbedder
	index    *fakeEmbeddingRepo
	metadata *fakeMetadataRepo
	cache    *memoryCache
	uc       *SearchUseCase
}

func newSearch() *searchDeps {
	d := &searchDeps{embedder: &fakeEmbedder{vector: []float32{1, 0}}}
	d.index = &fakeEmbeddingRepo{ordered: ordered{&d.calls}}
	d.metadata = &fakeMetadataRepo{ordered: ordered{&d.calls}, records: map[string]domain.ImageRecord{}}
	d.cache = &memoryCache{metadata: map[string]map[string]any{}}
	d.uc = NewSearchUC(d.embedder, d.index, d.metadata, d.cache, nil, 100, logger.NewNopLogger())
	return d
}

func TestSearch_ThresholdFilter(t *testing.T) {
	d := newSearch()
	d.index.points = []domain.ScoredPoint{
		{ID: "near", Score: 0.9},
		{ID: "edge", Score: 0.5},
		{ID: "far", Score: 0.3},
	}
	d.metadata.records["near"] = domain.ImageRecord{FileName: "temple.jpg"}

	res, err := d.uc.Search(context.Background(), NewSearchReq("red temple", 10, 0.5))
	require.NoError(t, err)

	assert.Equal(t, "red temple", res.Query)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "near", res.Results[0].ID)
	assert.InDelta(t, 0.9, res.Results[0].SimilarityScore, 1e-6)
	assert.Equal(t, "temple.jpg", res.Results[0].Metadata["file_name"])
	assert.Equal(t, "edge", res.Results[1].ID)
	assert.Equal(t, map[string]any{}, res.Results[1].Metadata)
	assert.Equal(t, uint64(10), d.index.limit)
	assert.Equal(t, "red temple", d.embedder.gotText)
}

func TestSearch_UsesCache(t *testing.T) {
	d := newSearch()
	d.index.points = []domain.ScoredPoint{{ID: "a", Score: 0.8}}
	d.metadata.records["a"] = domain.ImageRecord{FileName: "a.jpg"}

	_, err := d.uc.Search(context.Background(), NewSearchReq("q", 5, 0.5))
	require.NoError(t, err)
	_, err = d.uc.Search(context.Background(), NewSearchReq("q", 5, 0.5))
	require.NoError(t, err)

	assert.Equal(t, 1, d.metadata.gets)
	assert.Contains(t, d.cache.metadata, "a")
}

func TestSearch_CacheFailureFallsBackToStore(t *testing.T) {
	d := newSearch()
	d.cache.getErr = errors.New("redis down")
	d.index.points = []domain.ScoredPoint{{ID: "a", Score: 0.8}}
	d.metadata.records["a"] = domain.ImageRecord{FileName: "a.jpg"}

	res, err := d.uc.Search(context.Background(), NewSearchReq("q", 5, 0.5))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "a.jpg", res.Results[0].Metadata["file_name"])
}

func TestSearch_Validation(t *testing.T) {
	d := newSearch()

	_, err := d.uc.Search(context.Background(), NewSearchReq("  ", 10, 0.5))
	assert.ErrorIs(t, err, e.ErrMissingQuery)
	assert.Zero(t, d.embedder.calls)

	res, err := d.uc.Search(context.Background(), NewSearchReq("q", 0, 0.5))
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestSearch_CapsNumResults(t *testing.T) {
	d := newSearch()

	_, err := d.uc.Search(context.Background(), NewSearchReq("q", 1000, 0.5))
	require.NoError(t, err)
	assert.Equal(t, uint64(100), d.index.limit)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	d := newSearch()
	d.embedder.err = e.ErrEmptyPredictions

	_, err := d.uc.Search(context.Background(), NewSearchReq("q", 10, 0.5))
	assert.ErrorIs(t, err, e.ErrEmptyPredictions)
}
