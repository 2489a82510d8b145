// internal/workers/meetup/resolve-member-locations/config.go
package resolvememberlocations

import (
	"time"

	"meetup-workers/internal/models"
)

type Config struct {
	DefaultLocation models.Coordinate
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultLocation: models.Coordinate{Lat: 12.9716, Lng: 77.5946},
		Timeout:         10 * time.Second,
	}
}
