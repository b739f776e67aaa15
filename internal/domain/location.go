package domain

// ComponentKey - ключ компонента адреса
type ComponentKey string

const (
	ComponentCountry    ComponentKey = "country"
	ComponentState      ComponentKey = "state"
	ComponentCity       ComponentKey = "city"
	ComponentPostalCode ComponentKey = "postal_code"
)

// LocationDetails - структурированный адрес, полученный от геокодера
type LocationDetails struct {
	FormattedAddress string                  `json:"formatted_address" firestore:"formatted_address"`
	Latitude         float64                 `json:"latitude" firestore:"latitude"`
	Longitude        float64                 `json:"longitude" firestore:"longitude"`
	PlaceID          string                  `json:"place_id" firestore:"place_id"`
	Components       map[ComponentKey]string `json:"components" firestore:"components"`
}

// Clone возвращает независимую копию; nil остаётся nil.
func (l *LocationDetails) Clone() *LocationDetails {
	if l == nil {
		return nil
	}

	c := *l
	c.Components = make(map[ComponentKey]string, len(l.Components))
	for k, v := range l.Components {
		c.Components[k] = v
	}

	return &c
}

// LocationStatus различает найденную локацию, её отсутствие и сбой поиска.
type LocationStatus int

const (
	LocationNotFound LocationStatus = iota
	LocationFound
	LocationDegraded
)

func (s LocationStatus) String() string {
	switch s {
	case LocationFound:
		return "found"
	case LocationDegraded:
		return "degraded"
	default:
		return "not_found"
	}
}

// LocationResult - результат резолвера. Err заполнен только при LocationDegraded.
type LocationResult struct {
	Status   LocationStatus
	Location *LocationDetails
	Err      error
}

func Found(location *LocationDetails) LocationResult {
	return LocationResult{Status: LocationFound, Location: location}
}

func NotFound() LocationResult {
	return LocationResult{Status: LocationNotFound}
}

func Degraded(err error) LocationResult {
	return LocationResult{Status: LocationDegraded, Err: err}
}
