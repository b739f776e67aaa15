package embedding

import (
	"context"
	"fmt"
	"unicode/utf8"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	imageEmbeddingField = "imageEmbedding"
	textEmbeddingField  = "textEmbedding"
	// maxContextTextLen - ограничение модели на длину текстового контекста
	maxContextTextLen = 1024
)

// Predictor - часть aiplatform.PredictionClient, которой пользуется эмбеддер
type Predictor interface {
	Predict(ctx context.Context, req *aiplatformpb.PredictRequest, opts ...gax.CallOption) (*aiplatformpb.PredictResponse, error)
}

// VertexEmbedder получает мультимодальные эмбеддинги из Vertex AI.
// Векторы возвращаются нормированными.
type VertexEmbedder struct {
	predictor Predictor
	endpoint  string
	dimension int
	logger    logger.Logger
}

func NewVertexEmbedder(predictor Predictor, cfg *cfg.EmbeddingCfg, logger logger.Logger) *VertexEmbedder {
	return &VertexEmbedder{
		predictor: predictor,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			cfg.ProjectID, cfg.Region, cfg.Model),
		dimension: cfg.Dimension,
		logger:    logger,
	}
}

// EmbedImage возвращает эмбеддинг изображения; contextText передаётся модели вместе с ним.
func (v *VertexEmbedder) EmbedImage(ctx context.Context, image domain.EncodedImage, contextText string) ([]float32, error) {
	const op = "VertexEmbedder.EmbedImage"

	instance := map[string]any{
		"image": map[string]any{"bytesBase64Encoded": image.Base64()},
	}
	if contextText != "" {
		instance["text"] = truncate(contextText, maxContextTextLen)
	}

	vector, err := v.predict(ctx, instance, imageEmbeddingField)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

// EmbedText возвращает текстовый эмбеддинг в том же пространстве, что и изображения.
func (v *VertexEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	const op = "VertexEmbedder.EmbedText"

	vector, err := v.predict(ctx, map[string]any{"text": truncate(text, maxContextTextLen)}, textEmbeddingField)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

func (v *VertexEmbedder) predict(ctx context.Context, instance map[string]any, field string) ([]float32, error) {
	inst, err := structpb.NewValue(instance)
	if err != nil {
		return nil, err
	}

	params, err := structpb.NewValue(map[string]any{"dimension": v.dimension})
	if err != nil {
		return nil, err
	}

	resp, err := v.predictor.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   v.endpoint,
		Instances:  []*structpb.Value{inst},
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("predict failed (%s): %w", status.Code(err), err)
	}

	if len(resp.GetPredictions()) == 0 {
		return nil, e.ErrEmptyPredictions
	}

	values := resp.GetPredictions()[0].GetStructValue().GetFields()[field].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, e.Wrap(field, e.ErrEmptyEmbedding)
	}
	if len(values) != v.dimension {
		v.logger.Warnf("model %s returned %d values for %s, configured dimension is %d",
			v.endpoint, len(values), field, v.dimension)
		return nil, e.Wrap(fmt.Sprintf("got %d, want %d", len(values), v.dimension), e.ErrDimensionMismatch)
	}

	vector := make([]float32, len(values))
	for i, val := range values {
		vector[i] = float32(val.GetNumberValue())
	}

	return domain.Normalize(vector)
}

// truncate обрезает строку до limit байт, не разрывая символы UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}

	return s
}
