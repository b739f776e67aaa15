package domain

import (
	"math"
	"testing"

	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" red ", "", "blue", "green", "sky", "  ", "sun", "moon"})
	assert.Equal(t, []string{"red", "blue", "green", "sky", "sun"}, got)
	assert.Empty(t, NormalizeTags(nil))
}

func TestImageAnalysis_CombinedText(t *testing.T) {
	loc := &LocationDetails{FormattedAddress: "Tokyo, Japan", Components: map[ComponentKey]string{ComponentCity: "Tokyo"}}
	a := NewImageAnalysis(" A temple at dusk. ", []string{"red", "wooden"}, []string{"temple", "lantern"}, loc)

	want := "Context: A temple at dusk.\nVisual elements: red, wooden\nKey objects: temple, lantern\nLocation: Tokyo, Japan"
	assert.Equal(t, want, a.CombinedText())
	assert.Equal(t, want, a.CombinedText())

	loc.Components[ComponentCity] = "Kyoto"
	assert.Equal(t, "Tokyo", a.Location.Components[ComponentCity])
}

func TestImageAnalysis_CombinedTextWithoutLocation(t *testing.T) {
	a := NewImageAnalysis("", nil, nil, nil)
	assert.Equal(t, "Context: \nVisual elements: \nKey objects: ", a.CombinedText())
}

func TestStorageEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   StorageEvent
		wantErr error
	}{
		{name: "valid", event: NewStorageEvent("b", "Tokyo/temple.jpg", nil)},
		{name: "missing bucket", event: NewStorageEvent("", "a.jpg", nil), wantErr: e.ErrBadRequest},
		{name: "missing key", event: NewStorageEvent("b", " ", nil), wantErr: e.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLookupMetadata(t *testing.T) {
	v, ok := LookupMetadata(map[string]string{"X-Amz-Meta-Location": " Paris "}, MetadataLocationKey)
	require.True(t, ok)
	assert.Equal(t, "Paris", v)

	v, ok = LookupMetadata(map[string]string{"LOCATION": "Rome"}, MetadataLocationKey)
	require.True(t, ok)
	assert.Equal(t, "Rome", v)

	_, ok = LookupMetadata(map[string]string{"location": ""}, MetadataLocationKey)
	assert.False(t, ok)

	_, ok = LookupMetadata(nil, MetadataLocationKey)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, e.ErrEmptyEmbedding)

	_, err = Normalize([]float32{0, 0, 0})
	assert.ErrorIs(t, err, e.ErrZeroNormEmbedding)
}

func TestImageRecord(t *testing.T) {
	obj := ObjectInfo{Bucket: "b", ObjectKey: "Tokyo/temple.jpg", Size: 42, ContentType: "image/jpeg"}
	a := NewImageAnalysis("desc", []string{"red", "old"}, []string{"temple", "red"}, nil)

	r := NewImageRecord(obj, a, "processed/Tokyo/temple.jpg")
	assert.Equal(t, "temple.jpg", r.FileName)
	assert.Equal(t, []string{"red", "old", "temple"}, r.Tags())

	m := r.ToMap()
	assert.Equal(t, "b", m["source_bucket"])
	assert.NotContains(t, m, "location")
	assert.NotContains(t, m, "created_at")
}

func TestDecodeStorageEvents_S3Records(t *testing.T) {
	body := []byte(`{
		"EventName": "s3:ObjectCreated:Put",
		"Key": "uploads/Tokyo/temple.jpg",
		"Records": [
			{
				"eventName": "s3:ObjectCreated:Put",
				"s3": {
					"bucket": {"name": "uploads"},
					"object": {"key": "Tokyo%2Ftemple+1.jpg", "userMetadata": {"X-Amz-Meta-Location": "Tokyo"}}
				}
			},
			{
				"eventName": "s3:ObjectRemoved:Delete",
				"s3": {"bucket": {"name": "uploads"}, "object": {"key": "old.jpg"}}
			}
		]
	}`)

	events, err := DecodeStorageEvents(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "uploads", events[0].Bucket)
	assert.Equal(t, "Tokyo/temple 1.jpg", events[0].ObjectKey)
	assert.Equal(t, "Tokyo", events[0].Metadata["X-Amz-Meta-Location"])
}

func TestDecodeStorageEvents_Finalize(t *testing.T) {
	events, err := DecodeStorageEvents([]byte(`{"bucket":"b","name":"Paris/eiffel.jpg","metadata":{"location":"Paris"}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, NewStorageEvent("b", "Paris/eiffel.jpg", map[string]string{"location": "Paris"}), events[0])
}

func TestDecodeStorageEvents_Malformed(t *testing.T) {
	_, err := DecodeStorageEvents([]byte(`not json`))
	assert.ErrorIs(t, err, e.ErrMalformedEvent)
}

func TestLocationResult(t *testing.T) {
	assert.Equal(t, LocationNotFound, NotFound().Status)
	assert.Equal(t, "degraded", Degraded(e.ErrNotFound).Status.String())
	assert.Equal(t, LocationFound, Found(&LocationDetails{}).Status)

	var l *LocationDetails
	assert.Nil(t, l.Clone())
}
