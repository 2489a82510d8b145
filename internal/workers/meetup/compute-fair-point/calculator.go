// internal/workers/meetup/compute-fair-point/calculator.go
package computefairpoint

import (
	"math"
	"sort"

	"meetup-workers/internal/models"
)

// minDistance keeps a weight finite when the estimate lands on an input point.
const minDistance = 1e-10

// Calculator finds the point minimising the summed distance to all members.
// Distances are planar in degrees, which is accurate enough at city scale.
type Calculator struct {
	epsilon       float64
	maxIterations int
	fallback      models.Coordinate
}

func NewCalculator(cfg *Config) *Calculator {
	eps := cfg.Epsilon
	if eps <= 0 {
		eps = 1e-6
	}
	iters := cfg.MaxIterations
	if iters <= 0 {
		iters = 100
	}
	return &Calculator{epsilon: eps, maxIterations: iters, fallback: cfg.DefaultLocation}
}

// Compute never fails. It returns the geometric median when Weiszfeld
// converges and the per-axis median otherwise.
func (c *Calculator) Compute(points []models.Coordinate) (models.FairPoint, int) {
	switch len(points) {
	case 0:
		return models.FairPoint{Lat: c.fallback.Lat, Lng: c.fallback.Lng, Method: models.MethodSingleFallback}, 0
	case 1:
		return models.FairPoint{Lat: points[0].Lat, Lng: points[0].Lng, Method: models.MethodSingleFallback}, 0
	}

	ordered := sortedCopy(points)
	if p, iters, ok := c.weiszfeld(ordered); ok {
		return models.FairPoint{Lat: p.Lat, Lng: p.Lng, Method: models.MethodGeometricMedian}, iters
	}
	m := coordinateMedian(ordered)
	return models.FairPoint{Lat: m.Lat, Lng: m.Lng, Method: models.MethodCoordinateMedian}, c.maxIterations
}

func (c *Calculator) weiszfeld(points []models.Coordinate) (models.Coordinate, int, bool) {
	current := mean(points)

	for i := 1; i <= c.maxIterations; i++ {
		var sumLat, sumLng, sumW float64
		for _, p := range points {
			d := math.Hypot(p.Lat-current.Lat, p.Lng-current.Lng)
			if d < minDistance {
				d = minDistance
			}
			w := 1 / d
			sumLat += p.Lat * w
			sumLng += p.Lng * w
			sumW += w
		}
		if sumW == 0 || math.IsInf(sumW, 0) || math.IsNaN(sumW) {
			return models.Coordinate{}, i, false
		}

		next := models.Coordinate{Lat: sumLat / sumW, Lng: sumLng / sumW}
		if math.IsNaN(next.Lat) || math.IsNaN(next.Lng) {
			return models.Coordinate{}, i, false
		}

		moved := math.Hypot(next.Lat-current.Lat, next.Lng-current.Lng)
		current = next
		if moved < c.epsilon {
			return snap(current, points, c.epsilon), i, true
		}
	}
	return models.Coordinate{}, c.maxIterations, false
}

// snap returns an input point exactly when the estimate has converged onto it.
func snap(est models.Coordinate, points []models.Coordinate, eps float64) models.Coordinate {
	for _, p := range points {
		if math.Hypot(p.Lat-est.Lat, p.Lng-est.Lng) < eps {
			return p
		}
	}
	return est
}

// sortedCopy fixes summation order so input order cannot change the result.
func sortedCopy(points []models.Coordinate) []models.Coordinate {
	out := make([]models.Coordinate, len(points))
	copy(out, points)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lat != out[j].Lat {
			return out[i].Lat < out[j].Lat
		}
		return out[i].Lng < out[j].Lng
	})
	return out
}

func mean(points []models.Coordinate) models.Coordinate {
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return models.Coordinate{Lat: lat / n, Lng: lng / n}
}

func coordinateMedian(points []models.Coordinate) models.Coordinate {
	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lngs[i] = p.Lng
	}
	return models.Coordinate{Lat: median(lats), Lng: median(lngs)}
}

func median(vals []float64) float64 {
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
