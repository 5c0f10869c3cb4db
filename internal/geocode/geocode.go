package geocode

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("geocode not found")

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder is the external geocoding collaborator. Both directions are
// treated as unreliable and rate-sensitive; failures are non-fatal.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (lat float64, lng float64, displayName string, err error)
	Reverse(ctx context.Context, lat float64, lng float64) (displayName string, err error)
}
