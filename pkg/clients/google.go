package clients

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/firestore"
	config "github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/api/option"
	"google.golang.org/genai"
	"googlemaps.github.io/maps"
)

// NewGenAIClient создаёт клиента Vertex AI Gemini, привязанного к региону.
func NewGenAIClient(ctx context.Context, projectID, region string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

// NewPredictionClient создаёт gRPC-клиента Vertex AI Prediction для региона эмбеддингов.
func NewPredictionClient(ctx context.Context, cfg *config.EmbeddingCfg) (*aiplatform.PredictionClient, error) {
	endpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Region)

	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

func NewFirestoreClient(ctx context.Context, cfg *config.DocumentStoreCfg) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

func NewMapsClient(cfg *config.GeocodingCfg) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(cfg.ApiKey))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}
