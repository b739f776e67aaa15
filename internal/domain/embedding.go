package domain

import (
	"math"

	"github.com/DRSN-tech/image-catalog/pkg/e"
)

// Payload описывает дополнительную информацию вектора
type Payload map[string]any

// Embedding представляет эмбеддинг одного изображения
type Embedding struct {
	ID      string
	Vector  []float32
	Payload Payload
}

func NewEmbedding(id string, vector []float32, payload Payload) *Embedding {
	return &Embedding{
		ID:      id,
		Vector:  vector,
		Payload: payload,
	}
}

// Normalize возвращает копию вектора единичной L2-нормы.
func Normalize(vector []float32) ([]float32, error) {
	if len(vector) == 0 {
		return nil, e.ErrEmptyEmbedding
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil, e.ErrZeroNormEmbedding
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}

	return out, nil
}
