package converter

import "github.com/DRSN-tech/image-catalog/internal/domain"

type LocationConverter interface {
	ToRedisModel(entity *domain.LocationDetails) *LocationRedisModel
	ToDomain(model *LocationRedisModel) *domain.LocationDetails
}

type LocationConverterImpl struct{}

func NewLocationConverterImpl() *LocationConverterImpl {
	return &LocationConverterImpl{}
}

func (c *LocationConverterImpl) ToRedisModel(entity *domain.LocationDetails) *LocationRedisModel {
	if entity == nil {
		return nil
	}

	components := make(map[string]string, len(entity.Components))
	for k, v := range entity.Components {
		components[string(k)] = v
	}

	return &LocationRedisModel{
		FormattedAddress: entity.FormattedAddress,
		Latitude:         entity.Latitude,
		Longitude:        entity.Longitude,
		PlaceID:          entity.PlaceID,
		Components:       components,
	}
}

func (c *LocationConverterImpl) ToDomain(model *LocationRedisModel) *domain.LocationDetails {
	if model == nil {
		return nil
	}

	components := make(map[domain.ComponentKey]string, len(model.Components))
	for k, v := range model.Components {
		components[domain.ComponentKey(k)] = v
	}

	return &domain.LocationDetails{
		FormattedAddress: model.FormattedAddress,
		Latitude:         model.Latitude,
		Longitude:        model.Longitude,
		PlaceID:          model.PlaceID,
		Components:       components,
	}
}
