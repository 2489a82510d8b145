// internal/workers/meetup/coordinate-group-meetup/config.go
package coordinategroupmeetup

import (
	"time"

	"meetup-workers/internal/models"
)

type Config struct {
	RequestDeadline       time.Duration
	DivergenceThresholdKm float64
	TravelMode            models.TravelMode
	RadiusMeters          int
	MaxResults            int
	TopN                  int
	MaxConcurrency        int
	Timeout               time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RequestDeadline:       20 * time.Second,
		DivergenceThresholdKm: 2,
		TravelMode:            models.ModeTransit,
		RadiusMeters:          3000,
		MaxResults:            10,
		TopN:                  3,
		MaxConcurrency:        8,
		Timeout:               25 * time.Second,
	}
}
