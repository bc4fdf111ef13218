package providers

import (
	"context"
)

// LocationProvider supplies the coordinates sent with recognition requests for regional species weighting.
type LocationProvider interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64
	Longitude float64
}
