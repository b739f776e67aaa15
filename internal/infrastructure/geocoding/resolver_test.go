package geocoding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type fakeMaps struct {
	reverse      []maps.GeocodingResult
	reverseErr   error
	places       maps.PlacesSearchResponse
	placesErr    error
	reverseCalls int
	searchCalls  int
	lastLatLng   *maps.LatLng
}

func (f *fakeMaps) ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.reverseCalls++
	f.lastLatLng = r.LatLng
	return f.reverse, f.reverseErr
}

func (f *fakeMaps) TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error) {
	f.searchCalls++
	return f.places, f.placesErr
}

type memoryLocations struct {
	items  map[string]*domain.LocationDetails
	getErr error
}

func (m *memoryLocations) GetLocation(ctx context.Context, key string) (*domain.LocationDetails, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	loc, ok := m.items[key]
	return loc, ok, nil
}

func (m *memoryLocations) SetLocation(ctx context.Context, key string, location *domain.LocationDetails) error {
	m.items[key] = location
	return nil
}

func (m *memoryLocations) GetMetadata(ctx context.Context, ids []string) (map[string]map[string]any, error) {
	return nil, nil
}

func (m *memoryLocations) SetMetadata(ctx context.Context, metadata map[string]map[string]any) error {
	return nil
}

func tokyoResult() maps.GeocodingResult {
	return maps.GeocodingResult{
		FormattedAddress: "Shibuya City, Tokyo 150-0002, Japan",
		PlaceID:          "ChIJ-tokyo",
		AddressComponents: []maps.AddressComponent{
			{LongName: "Shibuya", Types: []string{"locality", "political"}},
			{LongName: "Tokyo", Types: []string{"locality", "political"}},
			{LongName: "Tokyo", Types: []string{"administrative_area_level_1", "political"}},
			{LongName: "Japan", Types: []string{"country", "political"}},
			{LongName: "150-0002", Types: []string{"postal_code"}},
		},
	}
}

func TestDMSToDecimal(t *testing.T) {
	assert.InDelta(t, 35.676111, DMSToDecimal(35, 40, 34, "N"), 1e-6)
	assert.InDelta(t, -33.8675, DMSToDecimal(33, 52, 3, "S"), 1e-4)
	assert.InDelta(t, -122.419444, DMSToDecimal(122, 25, 10, "W"), 1e-5)
	assert.Equal(t, 10.5, DMSToDecimal(10, 30, 0, "e"))

	prev := DMSToDecimal(10, 0, 0, "N")
	for _, s := range []float64{1, 10, 30, 59} {
		cur := DMSToDecimal(10, 0, s, "N")
		assert.Greater(t, cur, prev)
		prev = cur
	}
	assert.Less(t, DMSToDecimal(10, 0, 1, "S"), DMSToDecimal(10, 0, 0, "S"))
}

func TestResolveFromCoordinates_FirstMatchPerType(t *testing.T) {
	m := &fakeMaps{reverse: []maps.GeocodingResult{tokyoResult(), {FormattedAddress: "ignored"}}}
	r := NewResolver(m, nil, logger.NewNopLogger())

	res := r.ResolveFromCoordinates(context.Background(), 35.6595, 139.7005)
	require.Equal(t, domain.LocationFound, res.Status)

	loc := res.Location
	assert.Equal(t, "Shibuya City, Tokyo 150-0002, Japan", loc.FormattedAddress)
	assert.Equal(t, "ChIJ-tokyo", loc.PlaceID)
	assert.Equal(t, 35.6595, loc.Latitude)
	assert.Equal(t, map[domain.ComponentKey]string{
		domain.ComponentCity:       "Shibuya",
		domain.ComponentState:      "Tokyo",
		domain.ComponentCountry:    "Japan",
		domain.ComponentPostalCode: "150-0002",
	}, loc.Components)
}

func TestResolveFromCoordinates_ComponentFillsOneKey(t *testing.T) {
	m := &fakeMaps{reverse: []maps.GeocodingResult{{
		AddressComponents: []maps.AddressComponent{
			{LongName: "Singapore", Types: []string{"locality", "country", "political"}},
			{LongName: "Singapore City", Types: []string{"locality"}},
			{LongName: "018956", Types: []string{"postal_code"}},
		},
	}}}
	r := NewResolver(m, nil, logger.NewNopLogger())

	res := r.ResolveFromCoordinates(context.Background(), 1.2834, 103.8607)
	require.Equal(t, domain.LocationFound, res.Status)
	assert.Equal(t, map[domain.ComponentKey]string{
		domain.ComponentCountry:    "Singapore",
		domain.ComponentCity:       "Singapore City",
		domain.ComponentPostalCode: "018956",
	}, res.Location.Components)
}

func TestResolveFromCoordinates_EmptyAndErrors(t *testing.T) {
	r := NewResolver(&fakeMaps{}, nil, logger.NewNopLogger())
	assert.Equal(t, domain.LocationNotFound, r.ResolveFromCoordinates(context.Background(), 0, 0).Status)

	r = NewResolver(&fakeMaps{reverseErr: errors.New("OVER_QUERY_LIMIT")}, nil, logger.NewNopLogger())
	res := r.ResolveFromCoordinates(context.Background(), 1, 2)
	assert.Equal(t, domain.LocationDegraded, res.Status)
	assert.Nil(t, res.Location)
	assert.ErrorContains(t, res.Err, "OVER_QUERY_LIMIT")
}

func TestResolveFromName(t *testing.T) {
	m := &fakeMaps{
		reverse: []maps.GeocodingResult{tokyoResult()},
		places: maps.PlacesSearchResponse{Results: []maps.PlacesSearchResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 35.6762, Lng: 139.6503}}},
		}},
	}
	cache := &memoryLocations{items: map[string]*domain.LocationDetails{}}
	r := NewResolver(m, cache, logger.NewNopLogger())

	res := r.ResolveFromName(context.Background(), "  Tokyo ")
	require.Equal(t, domain.LocationFound, res.Status)
	assert.Equal(t, &maps.LatLng{Lat: 35.6762, Lng: 139.6503}, m.lastLatLng)
	assert.Contains(t, cache.items, "location:name:tokyo")
	assert.Contains(t, cache.items, "location:coords:35.6762,139.6503")

	res = r.ResolveFromName(context.Background(), "TOKYO")
	require.Equal(t, domain.LocationFound, res.Status)
	assert.Equal(t, 1, m.searchCalls)
	assert.Equal(t, 1, m.reverseCalls)
}

func TestResolveFromName_NoResults(t *testing.T) {
	m := &fakeMaps{}
	r := NewResolver(m, nil, logger.NewNopLogger())

	assert.Equal(t, domain.LocationNotFound, r.ResolveFromName(context.Background(), "Nowhere").Status)
	assert.Equal(t, domain.LocationNotFound, r.ResolveFromName(context.Background(), "   ").Status)
	assert.Equal(t, 1, m.searchCalls)
	assert.Zero(t, m.reverseCalls)
}

func TestResolveFromName_SearchError(t *testing.T) {
	r := NewResolver(&fakeMaps{placesErr: errors.New("REQUEST_DENIED")}, nil, logger.NewNopLogger())

	res := r.ResolveFromName(context.Background(), "Paris")
	assert.Equal(t, domain.LocationDegraded, res.Status)
}

func TestResolve_CacheFailureDoesNotFailLookup(t *testing.T) {
	m := &fakeMaps{reverse: []maps.GeocodingResult{tokyoResult()}}
	cache := &memoryLocations{items: map[string]*domain.LocationDetails{}, getErr: errors.New("redis down")}
	r := NewResolver(m, cache, logger.NewNopLogger())

	res := r.ResolveFromCoordinates(context.Background(), 35.6595, 139.7005)
	assert.Equal(t, domain.LocationFound, res.Status)
}

func TestResolveFromImage_NoEXIF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(p, []byte("\x89PNG\r\n\x1a\nnot really"), 0o600))

	m := &fakeMaps{}
	r := NewResolver(m, nil, logger.NewNopLogger())

	assert.Equal(t, domain.LocationNotFound, r.ResolveFromImage(context.Background(), p).Status)
	assert.Zero(t, m.reverseCalls)

	res := r.ResolveFromImage(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Equal(t, domain.LocationDegraded, res.Status)
}

func TestDecodeGPS_NotExif(t *testing.T) {
	_, _, err := decodeGPS(strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrNoGPS)
}

func TestCoordinatesKeyRounding(t *testing.T) {
	assert.Equal(t, "location:coords:35.67623,-139.65031", coordinatesKey(35.676234, -139.650311))
	assert.Equal(t, coordinatesKey(35.6762341, 139.6503), coordinatesKey(35.6762339, 139.6503))
}
