package qdrant

import (
	"testing"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPoints(t *testing.T) {
	points := toPoints([]domain.Embedding{
		*domain.NewEmbedding("5c56c793-69f3-4fbf-87e6-c4bf54c28c26", []float32{0.6, 0.8}, domain.Payload{"source_id": "a.jpg"}),
	})

	require.Len(t, points, 1)
	assert.Equal(t, "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", points[0].GetId().GetUuid())
	assert.Equal(t, "a.jpg", points[0].GetPayload()["source_id"].GetStringValue())
}

func TestFromScoredPoints(t *testing.T) {
	got := fromScoredPoints([]*qdrant.ScoredPoint{
		{Id: qdrant.NewIDUUID("a"), Score: 0.9},
		{Id: qdrant.NewIDNum(7), Score: 0.8},
		{Id: qdrant.NewIDUUID("b"), Score: 0.4},
	})

	assert.Equal(t, []domain.ScoredPoint{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.4}}, got)
}
