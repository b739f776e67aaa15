package geocoding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/shopspring/decimal"
	"googlemaps.github.io/maps"
)

const coordinatePrecision = 5

// MapsClient - часть maps.Client, которой пользуется резолвер
type MapsClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
}

// Resolver определяет локацию по EXIF, координатам или названию места.
// Ошибки внешних сервисов не пробрасываются, а превращаются в LocationDegraded.
type Resolver struct {
	maps   MapsClient
	cache  usecase.CacheRepository
	logger logger.Logger
}

func NewResolver(maps MapsClient, cache usecase.CacheRepository, logger logger.Logger) *Resolver {
	return &Resolver{
		maps:   maps,
		cache:  cache,
		logger: logger,
	}
}

// ResolveFromImage читает GPS из EXIF и геокодирует координаты.
func (r *Resolver) ResolveFromImage(ctx context.Context, path string) domain.LocationResult {
	lat, lon, err := ReadGPS(path)
	if err != nil {
		if errors.Is(err, ErrNoGPS) {
			return domain.NotFound()
		}
		return domain.Degraded(err)
	}

	return r.ResolveFromCoordinates(ctx, lat, lon)
}

// ResolveFromCoordinates берёт первый результат обратного геокодинга.
func (r *Resolver) ResolveFromCoordinates(ctx context.Context, lat, lon float64) domain.LocationResult {
	key := coordinatesKey(lat, lon)
	if loc, ok := r.cached(ctx, key); ok {
		return domain.Found(loc)
	}

	results, err := r.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lon},
	})
	if err != nil {
		return domain.Degraded(fmt.Errorf("reverse geocode %f,%f: %w", lat, lon, err))
	}
	if len(results) == 0 {
		return domain.NotFound()
	}

	loc := toLocationDetails(results[0], lat, lon)
	r.store(ctx, key, loc)

	return domain.Found(loc)
}

// ResolveFromName ищет место по тексту и геокодирует координаты первого результата.
func (r *Resolver) ResolveFromName(ctx context.Context, name string) domain.LocationResult {
	normalized := normalizeName(name)
	if normalized == "" {
		return domain.NotFound()
	}

	key := nameKey(normalized)
	if loc, ok := r.cached(ctx, key); ok {
		return domain.Found(loc)
	}

	resp, err := r.maps.TextSearch(ctx, &maps.TextSearchRequest{Query: name})
	if err != nil {
		return domain.Degraded(fmt.Errorf("place search %q: %w", name, err))
	}
	if len(resp.Results) == 0 {
		return domain.NotFound()
	}

	point := resp.Results[0].Geometry.Location
	res := r.ResolveFromCoordinates(ctx, point.Lat, point.Lng)
	if res.Status == domain.LocationFound {
		r.store(ctx, key, res.Location)
	}

	return res
}

func (r *Resolver) cached(ctx context.Context, key string) (*domain.LocationDetails, bool) {
	if r.cache == nil {
		return nil, false
	}

	loc, ok, err := r.cache.GetLocation(ctx, key)
	if err != nil {
		r.logger.Warnf("location cache read failed for %s: %v", key, err)
		return nil, false
	}

	return loc, ok
}

func (r *Resolver) store(ctx context.Context, key string, loc *domain.LocationDetails) {
	if r.cache == nil {
		return
	}

	if err := r.cache.SetLocation(ctx, key, loc); err != nil {
		r.logger.Warnf("location cache write failed for %s: %v", key, err)
	}
}

// toLocationDetails собирает адрес. Каждый компонент попадает ровно в один ключ
// по приоритету country > state > city > postal_code, и для ключа берётся первый такой компонент.
func toLocationDetails(res maps.GeocodingResult, lat, lon float64) *domain.LocationDetails {
	components := make(map[domain.ComponentKey]string, len(componentPriority))
	for _, c := range res.AddressComponents {
		key, ok := componentKey(c.Types)
		if !ok {
			continue
		}
		if _, seen := components[key]; !seen {
			components[key] = c.LongName
		}
	}

	return &domain.LocationDetails{
		FormattedAddress: res.FormattedAddress,
		Latitude:         lat,
		Longitude:        lon,
		PlaceID:          res.PlaceID,
		Components:       components,
	}
}

var componentPriority = []struct {
	placeType string
	key       domain.ComponentKey
}{
	{"country", domain.ComponentCountry},
	{"administrative_area_level_1", domain.ComponentState},
	{"locality", domain.ComponentCity},
	{"postal_code", domain.ComponentPostalCode},
}

func componentKey(types []string) (domain.ComponentKey, bool) {
	for _, p := range componentPriority {
		if slices.Contains(types, p.placeType) {
			return p.key, true
		}
	}

	return "", false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func nameKey(normalized string) string {
	return "location:name:" + normalized
}

func coordinatesKey(lat, lon float64) string {
	return fmt.Sprintf("location:coords:%s,%s",
		decimal.NewFromFloat(lat).Round(coordinatePrecision).String(),
		decimal.NewFromFloat(lon).Round(coordinatePrecision).String(),
	)
}
