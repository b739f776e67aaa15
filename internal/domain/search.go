package domain

// SearchHit - одна запись результата семантического поиска
type SearchHit struct {
	ID              string         `json:"id"`
	SimilarityScore float32        `json:"similarity_score"`
	Metadata        map[string]any `json:"metadata"`
}

// ScoredPoint - точка, возвращённая векторным индексом
type ScoredPoint struct {
	ID    string
	Score float32
}

// Distance переводит косинусное сходство в расстояние.
func (p ScoredPoint) Distance() float32 {
	return 1 - p.Score
}
