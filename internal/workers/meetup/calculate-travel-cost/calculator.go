// internal/workers/meetup/calculate-travel-cost/calculator.go
package calculatetravelcost

import (
	"context"
	"math"

	"meetup-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres.
func Distance(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

type Calculator struct {
	speeds         map[models.TravelMode]float64
	defaultMode    models.TravelMode
	maxConcurrency int
}

func NewCalculator(cfg *Config) *Calculator {
	mode := cfg.Mode
	if mode == "" {
		mode = models.ModeTransit
	}
	return &Calculator{
		speeds: map[models.TravelMode]float64{
			models.ModeWalking: cfg.WalkingKmh,
			models.ModeDriving: cfg.DrivingKmh,
			models.ModeTransit: cfg.TransitKmh,
		},
		defaultMode:    mode,
		maxConcurrency: cfg.MaxConcurrency,
	}
}

// EstimateTravelTime converts a distance to minutes at the mode's speed.
// Unknown modes use the default mode.
func (c *Calculator) EstimateTravelTime(km float64, mode models.TravelMode) float64 {
	speed, ok := c.speeds[mode]
	if !ok || speed <= 0 {
		speed = c.speeds[c.defaultMode]
	}
	if speed <= 0 {
		return 0
	}
	return km / speed * 60
}

func (c *Calculator) Travel(member models.Member, venue models.VenueCandidate, mode models.TravelMode) models.MemberTravel {
	if mode == "" {
		mode = c.defaultMode
	}
	var from models.Coordinate
	if member.ResolvedCoordinate != nil {
		from = *member.ResolvedCoordinate
	}
	km := Distance(from, venue.Coordinate)
	return models.MemberTravel{
		MemberID:          member.ID,
		VenueID:           venue.ID,
		DistanceKm:        km,
		TravelTimeMinutes: c.EstimateTravelTime(km, mode),
		Mode:              mode,
	}
}

// Matrix computes travel for every (member, venue) pair on a pool of
// min(pairs, maxConcurrency) goroutines. The result is indexed
// [venue][member] in input order.
func (c *Calculator) Matrix(ctx context.Context, members []models.Member, venues []models.VenueCandidate, mode models.TravelMode) ([][]models.MemberTravel, error) {
	out := make([][]models.MemberTravel, len(venues))
	for i := range out {
		out[i] = make([]models.MemberTravel, len(members))
	}

	pairs := len(members) * len(venues)
	if pairs == 0 {
		return out, nil
	}
	limit := c.maxConcurrency
	if limit <= 0 || limit > pairs {
		limit = pairs
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for vi := range venues {
		for mi := range members {
			vi, mi := vi, mi
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[vi][mi] = c.Travel(members[mi], venues[vi], mode)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
