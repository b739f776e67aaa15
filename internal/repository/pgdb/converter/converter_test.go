package converter

import (
	"testing"
	"time"

	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageMetadataConverter_Location(t *testing.T) {
	conv := NewImageMetadataConverterImpl()
	record := domain.ImageRecord{
		FileName: "temple.jpg",
		Location: &domain.LocationDetails{
			FormattedAddress: "Tokyo, Japan",
			Components:       map[domain.ComponentKey]string{domain.ComponentCity: "Tokyo"},
		},
	}

	model, err := conv.ToModel("id-1", record)
	require.NoError(t, err)
	assert.Equal(t, "id-1", model.ID)
	assert.JSONEq(t, `{"formatted_address":"Tokyo, Japan","latitude":0,"longitude":0,"place_id":"","components":{"city":"Tokyo"}}`, string(model.Location))
	assert.Equal(t, []string{}, model.VisualTags)

	back, err := conv.ToEntity(model)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", back.Location.Components[domain.ComponentCity])
	assert.Equal(t, "id-1", back.ID)
}

func TestImageMetadataConverter_NoLocation(t *testing.T) {
	conv := NewImageMetadataConverterImpl()

	model, err := conv.ToModel("id-1", domain.ImageRecord{})
	require.NoError(t, err)
	assert.Nil(t, model.Location)

	back, err := conv.ToEntity(model)
	require.NoError(t, err)
	assert.Nil(t, back.Location)
}

func TestOutboxEventConverter(t *testing.T) {
	conv := NewOutboxEventConverterImpl()
	now := time.Now().UTC()
	event := &usecase.OutboxEvent{ID: 3, EventID: "e", EventType: usecase.EventImageCatalogued, AggregateID: "a", Payload: []byte("{}"), Status: usecase.Pending, CreatedAt: now}

	model := conv.ToModel(event)
	assert.Equal(t, "pending", model.Status)
	assert.Equal(t, []*usecase.OutboxEvent{event}, conv.ToArrEntity([]*OutboxEventModel{model}))
}
