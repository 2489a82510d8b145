// internal/workers/meetup/compute-fair-point/config.go
package computefairpoint

import (
	"time"

	"meetup-workers/internal/models"
)

type Config struct {
	Epsilon         float64
	MaxIterations   int
	DefaultLocation models.Coordinate
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Epsilon:         1e-6,
		MaxIterations:   100,
		DefaultLocation: models.Coordinate{Lat: 12.9716, Lng: 77.5946},
		Timeout:         5 * time.Second,
	}
}
