// Package geocoding resolves free-text member locations to coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/models"
)

// Result is a resolved coordinate and the provider that produced it.
type Result struct {
	Coordinate models.Coordinate `json:"coordinate"`
	Provider   string            `json:"provider"`
}

// Geocoder resolves text to a coordinate.
type Geocoder interface {
	Resolve(ctx context.Context, text string) (*Result, error)
}

// ProviderCoordinatePair is reported for inputs that were already "lat,lng".
const ProviderCoordinatePair = "coordinate_pair"

// ParseCoordinate parses "lat,lng" (whitespace tolerant). It reports false for
// anything else, including out-of-range values.
func ParseCoordinate(text string) (models.Coordinate, bool) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != 2 {
		return models.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinate{}, false
	}
	c := models.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return models.Coordinate{}, false
	}
	return c, true
}

// Normalize lowercases and collapses whitespace; used for cache and gazetteer keys.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Chain parses coordinate pairs locally and otherwise tries each provider in
// order, returning the first success.
type Chain struct {
	providers []Geocoder
}

func NewChain(providers ...Geocoder) *Chain {
	var ps []Geocoder
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Chain{providers: ps}
}

func (c *Chain) Resolve(ctx context.Context, text string) (*Result, error) {
	if coord, ok := ParseCoordinate(text); ok {
		return &Result{Coordinate: coord, Provider: ProviderCoordinatePair}, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty location", apperrors.ErrNotFound)
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		res, err := p.Resolve(ctx, text)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no geocoder configured", apperrors.ErrUnavailable)
	}
	return nil, worstError(errs)
}

// worstError prefers a transport failure over not-found so partial failures
// report the real cause.
func worstError(errs []error) error {
	for _, err := range errs {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
	}
	return errs[len(errs)-1]
}
