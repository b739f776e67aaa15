package converter

// LocationRedisModel - закэшированный результат геокодинга
type LocationRedisModel struct {
	FormattedAddress string            `json:"formatted_address"`
	Latitude         float64           `json:"lat"`
	Longitude        float64           `json:"lon"`
	PlaceID          string            `json:"place_id"`
	Components       map[string]string `json:"components"`
}

// MetadataRedisModel - метаданные записи каталога для ответа поиска
type MetadataRedisModel struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}
