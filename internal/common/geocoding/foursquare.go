package geocoding

import (
	"context"

	"meetup-workers/internal/models"
)

const ProviderFoursquare = "foursquare"

type geotagger interface {
	Geotag(ctx context.Context, text string) (models.Coordinate, error)
}

// FoursquareGeocoder uses the Places geotagging endpoint.
type FoursquareGeocoder struct {
	client geotagger
}

func NewFoursquareGeocoder(client geotagger) *FoursquareGeocoder {
	return &FoursquareGeocoder{client: client}
}

func (g *FoursquareGeocoder) Resolve(ctx context.Context, text string) (*Result, error) {
	coord, err := g.client.Geotag(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Result{Coordinate: coord, Provider: ProviderFoursquare}, nil
}
